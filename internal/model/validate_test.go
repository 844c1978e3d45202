package model

import (
	"errors"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func testDocument() *Document {
	doc := NewDocument()
	doc.Amplifiers["amp1"] = &Amplifier{Card: "GAB8", Channels: 8}
	doc.Speakers["kitchen_left"] = &Speaker{Amplifier: "amp1", Channel: 1, Volume: intPtr(100)}
	doc.Speakers["kitchen_right"] = &Speaker{Amplifier: "amp1", Channel: 2, Volume: intPtr(100)}
	doc.Rooms["kitchen"] = &Room{Name: "Kitchen", Left: "kitchen_left", Right: "kitchen_right"}
	return doc
}

func TestValidate(t *testing.T) {
	t.Run("accepts a sound document", func(t *testing.T) {
		if err := testDocument().Validate(); err != nil {
			t.Fatalf("expected valid document, got %v", err)
		}
	})

	t.Run("rejects wrong version", func(t *testing.T) {
		doc := testDocument()
		doc.Version = "1.0"
		assertIssue(t, doc, "unsupported document version")
	})

	t.Run("rejects unknown amplifier reference", func(t *testing.T) {
		doc := testDocument()
		doc.Speakers["stray"] = &Speaker{Amplifier: "amp9", Channel: 1}
		assertIssue(t, doc, `speaker "stray" references unknown amplifier "amp9"`)
	})

	t.Run("rejects out-of-range channel", func(t *testing.T) {
		doc := testDocument()
		doc.Speakers["kitchen_left"].Channel = 9
		assertIssue(t, doc, "channel 9 outside range 1-8")
	})

	t.Run("rejects duplicate channel claim", func(t *testing.T) {
		doc := testDocument()
		doc.Speakers["kitchen_right"].Channel = 1
		assertIssue(t, doc, `both claim channel 1 of amplifier "amp1"`)
	})

	t.Run("rejects unknown speaker reference from room", func(t *testing.T) {
		doc := testDocument()
		doc.Rooms["attic"] = &Room{Left: "ghost"}
		assertIssue(t, doc, `room "attic" references unknown speaker "ghost"`)
	})

	t.Run("rejects max volume outside range", func(t *testing.T) {
		doc := testDocument()
		mv := 1.5
		doc.Global = &GlobalSettings{MaxVolume: &mv}
		assertIssue(t, doc, "max_volume 1.5 outside")
	})

	t.Run("collects multiple issues", func(t *testing.T) {
		doc := testDocument()
		doc.Speakers["kitchen_left"].Channel = 0
		doc.Speakers["stray"] = &Speaker{Amplifier: "amp9", Channel: 1}

		err := doc.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if len(verr.Issues) != 2 {
			t.Errorf("expected 2 issues, got %d: %v", len(verr.Issues), verr.Issues)
		}
	})

	t.Run("room without speakers is inert rather than invalid", func(t *testing.T) {
		doc := testDocument()
		doc.Rooms["hall"] = &Room{Name: "Hall"}
		if err := doc.Validate(); err != nil {
			t.Fatalf("expected valid document, got %v", err)
		}
	})
}

func assertIssue(t *testing.T, doc *Document, fragment string) {
	t.Helper()
	err := doc.Validate()
	if err == nil {
		t.Fatalf("expected validation error containing %q, got nil", fragment)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Errorf("expected error to contain %q, got %q", fragment, err.Error())
	}
}

func TestSpeakerGain(t *testing.T) {
	sp := &Speaker{Amplifier: "amp1", Channel: 1, Volume: intPtr(80)}
	if got := sp.Gain(0.5); got != 0.4 {
		t.Errorf("expected gain 0.4, got %v", got)
	}

	sp.Volume = nil
	if got := sp.Gain(0.5); got != 0.5 {
		t.Errorf("expected default volume gain 0.5, got %v", got)
	}
}
