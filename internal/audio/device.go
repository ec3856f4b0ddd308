package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gen2brain/malgo"
)

// processFunc receives one block of deinterleaved-to-float32 duplex audio.
type processFunc func(input, output []float32, frames int)

// device wraps a malgo duplex device. miniaudio hands the callback raw
// bytes, so the wrapper converts to float32 scratch buffers before invoking
// the engine and converts the produced output back.
type device struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device

	in  []float32
	out []float32
}

// openDevice opens a full-duplex stream on the default devices. Device
// name resolution is the orchestrator's concern; unresolved names fall back
// to the defaults.
func openDevice(cfg Config, process processFunc) (*device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}

	d := &device{
		ctx: ctx,
		in:  make([]float32, cfg.BufferSize*cfg.InputChannels),
		out: make([]float32, cfg.BufferSize*cfg.OutputChannels),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BufferSize)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.InputChannels)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.OutputChannels)

	onData := func(pOutput, pInput []byte, frameCount uint32) {
		frames := int(frameCount)
		if frames*cfg.InputChannels > len(d.in) {
			frames = len(d.in) / cfg.InputChannels
		}
		if frames*cfg.OutputChannels > len(d.out) {
			frames = len(d.out) / cfg.OutputChannels
		}

		in := d.in[:frames*cfg.InputChannels]
		for i := range in {
			in[i] = math.Float32frombits(binary.LittleEndian.Uint32(pInput[i*4:]))
		}

		out := d.out[:frames*cfg.OutputChannels]
		process(in, out, frames)

		for i, v := range out {
			binary.LittleEndian.PutUint32(pOutput[i*4:], math.Float32bits(v))
		}
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("init duplex device: %w", err)
	}
	d.dev = dev
	return d, nil
}

func (d *device) start() error {
	return d.dev.Start()
}

func (d *device) close() {
	if d.dev != nil {
		d.dev.Stop()
		d.dev.Uninit()
		d.dev = nil
	}
	if d.ctx != nil {
		d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}
}
