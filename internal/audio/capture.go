// Package audio handles audio device capture and window assembly
package audio

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Capturer reads mono samples from an input device and pushes fixed-size
// chunks into the queue. The read loop owns the portaudio stream; the
// queue decouples it from the (potentially slow) session loop.
type Capturer struct {
	queue      *Queue
	sampleRate int
	chunkSize  int
	deviceName string

	mu       sync.Mutex
	stream   *portaudio.Stream
	cancel   context.CancelFunc
	stopOnce *sync.Once
	running  bool
}

// NewCapturer creates a capturer feeding the given queue. deviceName may
// be empty to use the default input device, or a case-insensitive
// substring of the desired device's name.
func NewCapturer(queue *Queue, sampleRate, chunkSize int, deviceName string) (*Capturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Capturer{
		queue:      queue,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		deviceName: deviceName,
	}, nil
}

// Start opens the input stream and begins pushing chunks.
func (c *Capturer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	dev, err := c.pickDevice()
	if err != nil {
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.sampleRate),
		FramesPerBuffer: c.chunkSize,
	}

	buf := make([]float32, c.chunkSize)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}

	devCtx, cancel := context.WithCancel(ctx)
	c.stream = stream
	c.cancel = cancel
	c.stopOnce = &sync.Once{}
	c.running = true

	slog.Info("started audio capture",
		"device", dev.Name, "sample_rate", c.sampleRate, "chunk_size", c.chunkSize)

	go c.readLoop(devCtx, stream, buf, dev.Name)
	return nil
}

func (c *Capturer) readLoop(ctx context.Context, stream *portaudio.Stream, buf []float32, device string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// An overrun means the device overwrote samples we had not
			// read yet. Non-fatal: log and keep reading.
			if errors.Is(err, portaudio.InputOverflowed) {
				slog.Debug("input overflow", "device", device)
				continue
			}
			slog.Error("audio read error", "device", device, "error", err)
			return
		}

		c.queue.Push(Chunk{
			Data:      append([]float32(nil), buf...),
			Timestamp: time.Now().UnixNano(),
		})
	}
}

func (c *Capturer) pickDevice() (*portaudio.DeviceInfo, error) {
	if c.deviceName == "" {
		return portaudio.DefaultInputDevice()
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(c.deviceName)
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), want) {
			return dev, nil
		}
	}

	slog.Warn("input device not found, using default", "wanted", c.deviceName)
	return portaudio.DefaultInputDevice()
}

// Stop tears down the stream. Safe to call more than once; the capture
// path pushes nothing after it returns.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.stopOnce.Do(func() {
		c.cancel()
		_ = c.stream.Stop()
		_ = c.stream.Close()
	})
	c.stream = nil
	c.running = false
}

// Terminate releases portaudio. Call once at process shutdown.
func (c *Capturer) Terminate() {
	c.Stop()
	_ = portaudio.Terminate()
}
