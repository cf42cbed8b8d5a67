package client

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// Backends disagree on field names. Every alias is resolved here, right after
// the network call, and nowhere deeper in the program.
var (
	classIDKeys      = []string{"class_id", "classId", "id"}
	classNameKeys    = []string{"class_name", "className", "name"}
	classCodeKeys    = []string{"class_code", "classCode", "code"}
	sectionIDKeys    = []string{"section_id", "sectionId", "id"}
	sectionClassKeys = []string{"class_id", "classId"}
	sectionNameKeys  = []string{"section_name", "sectionName", "name"}
	capacityKeys     = []string{"capacity", "max_students"}
	studentKeys      = []string{"current_students", "currentStudents", "student_count", "students_count", "total_students"}
	fullKeys         = []string{"full", "is_full", "isFull"}
)

type rawObject map[string]json.RawMessage

func (o rawObject) first(keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

func (o rawObject) intField(keys []string) (int64, error) {
	v, ok := o.first(keys)
	if !ok {
		return 0, nil
	}
	return parseInt64(v)
}

func (o rawObject) stringField(keys []string) string {
	v, ok := o.first(keys)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	// Numbers are accepted as labels.
	return strings.Trim(string(v), `"`)
}

func (o rawObject) boolField(keys []string) bool {
	v, ok := o.first(keys)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b
	}
	n, err := parseInt64(v)
	return err == nil && n != 0
}

func isNull(v json.RawMessage) bool {
	return len(bytes.TrimSpace(v)) == 0 || string(bytes.TrimSpace(v)) == "null"
}

// parseInt64 accepts 12, 12.0 and "12".
func parseInt64(v json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(v, &n); err == nil {
		return n, nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not an integer: %s", string(v))
		}
		return int64(f), nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	return 0, fmt.Errorf("not a number: %s", string(v))
}

func decodeObjects(data json.RawMessage) ([]rawObject, error) {
	if isNull(data) {
		return nil, nil
	}
	var objs []rawObject
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, err
	}
	return objs, nil
}

func decodeClass(o rawObject) (model.Class, error) {
	id, err := o.intField(classIDKeys)
	if err != nil {
		return model.Class{}, fmt.Errorf("class_id: %w", err)
	}
	return model.Class{
		ID:   id,
		Name: o.stringField(classNameKeys),
		Code: o.stringField(classCodeKeys),
	}, nil
}

func decodeClasses(data json.RawMessage) ([]model.Class, error) {
	objs, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}
	classes := make([]model.Class, 0, len(objs))
	for i, o := range objs {
		c, err := decodeClass(o)
		if err != nil {
			return nil, fmt.Errorf("class[%d]: %w", i, err)
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// decodeClassObject extracts a class from a mutation response, if present.
func decodeClassObject(data json.RawMessage) (model.Class, bool) {
	if isNull(data) {
		return model.Class{}, false
	}
	var o rawObject
	if err := json.Unmarshal(data, &o); err != nil {
		return model.Class{}, false
	}
	c, err := decodeClass(o)
	if err != nil {
		return model.Class{}, false
	}
	return c, true
}

func decodeSection(o rawObject, classID int64) (model.Section, error) {
	id, err := o.intField(sectionIDKeys)
	if err != nil {
		return model.Section{}, fmt.Errorf("section_id: %w", err)
	}
	owner, err := o.intField(sectionClassKeys)
	if err != nil {
		return model.Section{}, fmt.Errorf("class_id: %w", err)
	}
	if owner == 0 {
		owner = classID
	}
	capacity, err := o.intField(capacityKeys)
	if err != nil {
		return model.Section{}, fmt.Errorf("capacity: %w", err)
	}
	students, err := o.intField(studentKeys)
	if err != nil {
		return model.Section{}, fmt.Errorf("current_students: %w", err)
	}
	return model.Section{
		ID:              id,
		ClassID:         owner,
		Name:            o.stringField(sectionNameKeys),
		Capacity:        int(capacity),
		CurrentStudents: int(students),
		Full:            o.boolField(fullKeys),
	}, nil
}

func decodeSections(data json.RawMessage, classID int64) ([]model.Section, error) {
	objs, err := decodeObjects(data)
	if err != nil {
		return nil, err
	}
	sections := make([]model.Section, 0, len(objs))
	for i, o := range objs {
		s, err := decodeSection(o, classID)
		if err != nil {
			return nil, fmt.Errorf("section[%d]: %w", i, err)
		}
		if s.ClassID != classID {
			log.Printf("warning: dropping section %d: belongs to class %d, fetched for class %d", s.ID, s.ClassID, classID)
			continue
		}
		sections = append(sections, s)
	}
	return sections, nil
}
