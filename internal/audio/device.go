package audio

import "github.com/hajimehoshi/oto/v2"

// Device owns the oto output context. Opening it is the "unlock": it is
// attempted once per session, and failure leaves every sound-producing
// call a silent no-op.
type Device struct {
	ctx   *oto.Context
	ready chan struct{}
}

// OpenDevice creates the output context.
func OpenDevice() (*Device, error) {
	ctx, ready, err := oto.NewContext(SampleRate, ChannelCount, BitDepth)
	if err != nil {
		return nil, err
	}
	return &Device{ctx: ctx, ready: ready}, nil
}

// Context exposes the underlying oto context for player creation.
func (d *Device) Context() *oto.Context { return d.ctx }

// Ready reports whether the device has finished initializing. Sounds
// triggered before readiness are skipped, never queued.
func (d *Device) Ready() bool {
	select {
	case <-d.ready:
		return true
	default:
		return false
	}
}
