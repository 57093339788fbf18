package core

import "testing"

func TestMatchTrigger(t *testing.T) {
	tests := []struct {
		text     string
		question string
		ok       bool
	}{
		{text: "/bot", question: "", ok: true},
		{text: "/bot what is 2+2", question: "what is 2+2", ok: true},
		{text: "/bot   spaced   out  ", question: "spaced   out", ok: true},
		{text: "/bot\nmulti\nline", question: "multi\nline", ok: true},
		{text: "/botany is fun", ok: false},
		{text: "/BOT hi", ok: false},
		{text: "hey /bot hi", ok: false},
		{text: "bot hi", ok: false},
	}

	for _, tt := range tests {
		question, ok := matchTrigger(tt.text, "/bot")
		if ok != tt.ok || question != tt.question {
			t.Errorf("matchTrigger(%q) = (%q, %v), want (%q, %v)", tt.text, question, ok, tt.question, tt.ok)
		}
	}

	if _, ok := matchTrigger("/bot hi", ""); ok {
		t.Error("empty trigger must never match")
	}
}
