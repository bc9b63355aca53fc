/*
Package playback writes mono float signal into an audio server.

The Sink owns a single playback stream opened on a Server. Samples are
written with Process, which blocks until the server accepts them, so a
slow device throttles the producer. The stream is flushed periodically to
keep the latency bounded, and the output device can be changed at any
time with SelectDevice:

    sink, err := playback.New(pulseaudio.NewServer(), 48000,
        playback.WithDevice("alsa_output.usb"),
        playback.WithAppName("receiver"),
        playback.WithStreamName("Audio"),
    )
    if err != nil {
        // sink is usable, but discards samples until a device is selected
    }
    defer sink.Close()

Open and write failures never panic. A sink without stream accepts all
calls and reports ErrNoStream from Process.

The sink is also a pipe component. Sink returns its allocator and
DeviceMutation switches the device from another goroutine in a way that
is serialized with processing:

    p, _ := pipe.New(bufferSize, pipe.Line{
        Source: wav.Source(file, 0),
        Sink:   sink.Sink(),
    })
    r := pipe.Run(ctx, p)
    r.Push(sink.DeviceMutation("alsa_output.hdmi"))
*/
package playback
