package speech

import "context"

// Transcriber converts captured audio into text. Only the microphone
// recognizer needs one; browser-side recognition arrives as text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Sink receives recognition events. The voice engine implements it.
type Sink interface {
	HandleUtterance(text string)
	HandleSessionEnd()
	HandleRecognitionError(err error)
}
