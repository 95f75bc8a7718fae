package test

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

const asciiLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomASCIIString returns a pseudo-random ASCII string within the provided bounds.
// When maxLen equals minLen the resulting string always has that exact length.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	length := minLen
	if maxLen > minLen {
		length += int(randomIntn(maxLen - minLen + 1))
	}
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = asciiLetters[randomIntn(len(asciiLetters))]
	}
	return string(buf)
}

// RandomSubscriberID returns a fresh subscriber identifier.
func RandomSubscriberID() string {
	return "sub-" + RandomASCIIString(12, 12)
}

// RandomIntake returns a complete intake that passes validation.
func RandomIntake() model.Intake {
	types := []model.LetterType{
		model.LetterTypeDemand,
		model.LetterTypeNotice,
		model.LetterTypeComplaint,
		model.LetterTypeGeneral,
	}
	return model.Intake{
		LetterType:    types[randomIntn(len(types))],
		SenderName:    RandomASCIIString(5, 30),
		RecipientName: RandomASCIIString(5, 30),
		Subject:       RandomASCIIString(10, 80),
		Details:       RandomASCIIString(40, 400),
	}
}

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}
