package pipe

import (
	"sync"
)

// errorMerger allows to listen to multiple error channels.
type errorMerger struct {
	wg        sync.WaitGroup
	errorChan chan error
}

func newErrorMerger() *errorMerger {
	return &errorMerger{
		errorChan: make(chan error),
	}
}

// add error channels from all components into one.
func (m *errorMerger) add(errcList ...<-chan error) {
	m.wg.Add(len(errcList))
	for _, ec := range errcList {
		go m.listen(ec)
	}
}

// listen forwards errors until channel is closed.
func (m *errorMerger) listen(ec <-chan error) {
	for err := range ec {
		m.errorChan <- err
	}
	m.wg.Done()
}

// wait waits for all underlying error channels to be closed, calls done
// and then closes the output error channel.
func (m *errorMerger) wait(done func()) {
	m.wg.Wait()
	done()
	close(m.errorChan)
}
