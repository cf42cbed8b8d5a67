package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

func pickerClasses() []model.Class {
	return []model.Class{
		{ID: 1, Name: "Grade 5", Code: "G5"},
		{ID: 2, Name: "Grade 6", Code: "G6"},
		{ID: 3, Name: "Grade 7"},
	}
}

func TestNewClassPickerModel(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewClassPickerModel(pickerClasses(), 2, theme)

	got, ok := picker.Selected()
	if !ok || got.ID != 2 {
		t.Errorf("Expected current class 2 to be selected, got %+v (ok=%v)", got, ok)
	}
}

func TestNewClassPickerModelUnknownClass(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewClassPickerModel(pickerClasses(), 99, theme)

	if picker.selectedIndex != 0 {
		t.Errorf("Expected selectedIndex 0 for unknown class, got %d", picker.selectedIndex)
	}
}

func TestClassPickerNavigation(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewClassPickerModel(pickerClasses(), 0, theme)

	picker.MoveUp()
	if picker.selectedIndex != 0 {
		t.Errorf("MoveUp at start should stay at 0, got %d", picker.selectedIndex)
	}

	picker.MoveDown()
	if got, _ := picker.Selected(); got.ID != 2 {
		t.Errorf("After MoveDown, expected class 2, got %d", got.ID)
	}

	for i := 0; i < 10; i++ {
		picker.MoveDown()
	}
	if picker.selectedIndex != 2 {
		t.Errorf("MoveDown at end should stay at 2, got %d", picker.selectedIndex)
	}
}

func TestClassPickerEmpty(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewClassPickerModel(nil, 0, theme)

	if _, ok := picker.Selected(); ok {
		t.Error("Selected() on an empty picker should report false")
	}
	picker.MoveDown()
	if !strings.Contains(picker.View(), "no classes") {
		t.Error("Expected empty picker to say so")
	}
}

func TestClassPickerView(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewClassPickerModel(pickerClasses(), 1, theme)
	picker.SetSize(80, 40)

	output := picker.View()
	for _, expected := range []string{
		"Choose Class",
		"Grade 5 (G5)",
		"Grade 7",
		"> ",
		"j/k: navigate",
		"esc: close",
	} {
		if !strings.Contains(output, expected) {
			t.Errorf("Expected View() to contain %q", expected)
		}
	}

	found := false
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, "Grade 5") && strings.Contains(line, "✓") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the current class to carry a checkmark")
	}
}
