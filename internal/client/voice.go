package client

import (
	"context"
	"log"
	"sync"
)

// Recorder is the platform microphone. Start may fail when permission is
// denied; Stop returns whatever was captured and releases the device.
type Recorder interface {
	Start() error
	Stop() ([]byte, error)
}

// VoiceCapture is the idle/recording state machine over one exclusive
// microphone. Only one recording session may be active at a time.
type VoiceCapture struct {
	mu         sync.Mutex
	recorder   Recorder
	controller *Controller
	notify     func(message string)
	recording  bool
	buffer     []byte
}

// NewVoiceCapture wires the recorder to the session controller. notify
// surfaces microphone failures to the user; nil discards them.
func NewVoiceCapture(recorder Recorder, controller *Controller, notify func(string)) *VoiceCapture {
	if notify == nil {
		notify = func(string) {}
	}
	return &VoiceCapture{recorder: recorder, controller: controller, notify: notify}
}

// Recording reports whether a capture is in progress.
func (v *VoiceCapture) Recording() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.recording
}

// Start begins a capture. A start while already recording is a no-op and
// does not touch the microphone. A permission failure leaves the machine
// idle and surfaces a notice.
func (v *VoiceCapture) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.recording {
		return nil
	}

	// Stale audio from an earlier session must never leak into this one.
	v.buffer = nil

	if err := v.recorder.Start(); err != nil {
		log.Printf("[voice] microphone: %v", err)
		v.notify("Microphone unavailable. Please check permissions.")
		return err
	}

	v.recording = true
	return nil
}

// Stop ends the capture and uploads the clip. A stop while idle is a
// no-op. The microphone is released whether or not the upload succeeds,
// and the buffer never outlives its one consumption.
func (v *VoiceCapture) Stop(ctx context.Context) error {
	v.mu.Lock()
	if !v.recording {
		v.mu.Unlock()
		return nil
	}

	captured, err := v.recorder.Stop()
	v.recording = false
	if err != nil {
		v.buffer = nil
		v.mu.Unlock()
		log.Printf("[voice] stop recording: %v", err)
		v.notify("Recording failed. Please try again.")
		return err
	}
	v.buffer = captured

	// Consume the buffered audio for this upload; it must not survive
	// into the next idle period.
	clip := v.buffer
	v.buffer = nil
	v.mu.Unlock()

	if len(clip) == 0 {
		return nil
	}

	return v.controller.SubmitAudio(ctx, clip)
}
