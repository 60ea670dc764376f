package ctcspeech

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned when the alphabet, language model or trie cannot
	// be loaded, or an option is out of range.
	ErrConfig = errors.New("ctcspeech: configuration error")
	// ErrModelLoad wraps the reason the acoustic model could not be opened.
	// It is reported by Model.Err; construction itself still succeeds.
	ErrModelLoad = errors.New("ctcspeech: acoustic model load failed")
	// ErrModelNotLoaded is returned by inference on a Model without an
	// acoustic model.
	ErrModelNotLoaded = errors.New("ctcspeech: acoustic model not loaded")
	// ErrInput is returned for unusable caller input.
	ErrInput = errors.New("ctcspeech: invalid input")
	// ErrFeatureTooShort is returned when caller frames are narrower than
	// the model's frame width.
	ErrFeatureTooShort = fmt.Errorf("%w: feature frame too short", ErrInput)
	// ErrInference is returned when the acoustic model or the decoder fails.
	ErrInference = errors.New("ctcspeech: inference failed")
)
