package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64

	// UniquePostback marks callback data that carries a dialogue postback payload.
	UniquePostback = "pb"
)

// ErrNotPostback is returned when callback data was not produced by EncodePostback.
var ErrNotPostback = errors.New("callback data is not a postback")

func EncodeCallback(unique, data string) (string, error) {
	payload := unique
	if data != "" {
		payload = unique + CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

func DecodeCallback(callbackData string) (unique, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	unique, data, _ = strings.Cut(callbackData, CallbackDataSeparator)
	return unique, data, nil
}

// EncodePostback packs a postback payload into callback data.
func EncodePostback(payload string) (string, error) {
	return EncodeCallback(UniquePostback, payload)
}

// DecodePostback extracts the payload written by EncodePostback.
func DecodePostback(callbackData string) (string, error) {
	unique, data, err := DecodeCallback(strings.TrimPrefix(callbackData, "\f"))
	if err != nil {
		return "", err
	}
	if unique != UniquePostback {
		return "", ErrNotPostback
	}
	return data, nil
}
