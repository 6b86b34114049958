package message

import (
	"fmt"
	"unicode/utf8"
)

// TypeText carries a UTF-8 string.
const TypeText int32 = 1

type Text struct {
	Base
	Body string
}

func NewText(body string) *Text {
	return &Text{Base: NewBase(TypeText), Body: body}
}

func (t *Text) PayloadBytes() ([]byte, error) {
	return []byte(t.Body), nil
}

func (t *Text) LoadPayload(data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrMalformedPayload)
	}
	t.Body = string(data)
	return nil
}
