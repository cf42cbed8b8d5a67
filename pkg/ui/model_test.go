package ui

import "testing"

func TestParseViewKind(t *testing.T) {
	tests := []struct {
		in      string
		want    ViewKind
		wantErr bool
	}{
		{"", ViewTree, false},
		{"tree", ViewTree, false},
		{"list", ViewList, false},
		{"board", ViewTree, true},
	}
	for _, tt := range tests {
		got, err := ParseViewKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseViewKind(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseViewKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompletedText(t *testing.T) {
	if got := completedText(OpDeleteSection); got != "section deleted" {
		t.Errorf("completedText(delete section) = %q", got)
	}
	if got := completedText(OpListClasses); got != "list classes" {
		t.Errorf("completedText(list classes) = %q", got)
	}
}
