// Package id provides ID generation helpers used across services.
package id

import (
	nanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultLength = 21

const (
	PrefixSession    = "sess"
	PrefixChatLog    = "chat"
	PrefixUtterance  = "utt"
	PrefixAccessCode = "code"
)

func New(prefix string) string {
	id, err := nanoid.New(DefaultLength)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

func NewWithLength(prefix string, length int) string {
	id, err := nanoid.New(length)
	if err != nil {
		panic("nanoid generation failed: " + err.Error())
	}
	return prefix + "_" + id
}

func NewSession() string   { return New(PrefixSession) }
func NewChatLog() string   { return New(PrefixChatLog) }
func NewUtterance() string { return New(PrefixUtterance) }
