package models

import (
	"fmt"
	"strings"
)

// Level controls how much explanatory scaffolding an answer carries.
type Level string

const (
	LevelBeginner Level = "beginner"
	LevelAdvanced Level = "advanced"
)

// Tone controls answer phrasing only; it never changes content.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneNeutral  Tone = "neutral"
	ToneFormal   Tone = "formal"
)

// AskRequest is the body of an ask call.
type AskRequest struct {
	Question string `json:"question"`
	Level    Level  `json:"level,omitempty"`
	Tone     Tone   `json:"tone,omitempty"`
	ClassID  string `json:"class_id,omitempty"`
}

// Validate trims the question, applies defaults and rejects unknown values.
func (q *AskRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("%w: question is required", ErrValidation)
	}
	q.Level = Level(strings.ToLower(strings.TrimSpace(string(q.Level))))
	q.Tone = Tone(strings.ToLower(strings.TrimSpace(string(q.Tone))))
	q.ClassID = strings.TrimSpace(q.ClassID)
	if q.Level == "" {
		q.Level = LevelBeginner
	}
	if q.Tone == "" {
		q.Tone = ToneNeutral
	}
	switch q.Level {
	case LevelBeginner, LevelAdvanced:
	default:
		return fmt.Errorf("%w: level must be beginner or advanced", ErrValidation)
	}
	switch q.Tone {
	case ToneFriendly, ToneNeutral, ToneFormal:
	default:
		return fmt.Errorf("%w: tone must be friendly, neutral or formal", ErrValidation)
	}
	return nil
}
