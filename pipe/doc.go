/*
Package pipe allows to build and execute DSP pipelines.

Each line of the pipe has up to three stages:

    Source - the origin of signal;
    Processor - the manipulator of the signal;
    Sink - the destination of signal;

Source and Sink are mandatory, there might be 0 to n Processors. Every
component is running in its own goroutine and components are linked with
unbuffered channels, so a blocking sink throttles the whole line.

Components are instantiated with allocator functions:

    SourceAllocatorFunc
    ProcessorAllocatorFunc
    SinkAllocatorFunc

Allocators are executed by New:

    p, err := pipe.New(bufferSize, pipe.Line{
        Source: wav.Source(file, 0),
        Sink:   sink.Sink(),
    })

Once pipe is built, it can be executed:

    r := pipe.Run(ctx, p)
    err := r.Wait()

Run starts all components and executes them until either the source is
done, the context is done or an error in any of the components occured.

Components can be changed while the pipe is running with mutations. A
mutation pushed into the runner is delivered to the component along with
the next buffer, so component state is never accessed concurrently.
*/
package pipe
