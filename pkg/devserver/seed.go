package devserver

import (
	"context"
	"fmt"
)

type seedSection struct {
	name     string
	capacity int
	students int
}

type seedClass struct {
	name     string
	code     string
	sections []seedSection
}

var demoClasses = []seedClass{
	{name: "Grade 5", code: "G5", sections: []seedSection{
		{name: "A", capacity: 40, students: 12},
		{name: "B", capacity: 30, students: 30},
	}},
	{name: "Grade 6", code: "G6", sections: []seedSection{
		{name: "A", capacity: 35, students: 28},
		{name: "Rose", capacity: 20, students: 0},
	}},
	{name: "Grade 7", code: "G7"},
}

// Seed loads demo classes, sections and enrollments into an empty store.
func Seed(ctx context.Context, s *Store) error {
	existing, err := s.ListClasses(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, sc := range demoClasses {
		cls, err := s.CreateClass(ctx, sc.name, sc.code)
		if err != nil {
			return fmt.Errorf("seed class %q: %w", sc.name, err)
		}
		for _, ss := range sc.sections {
			sec, err := s.CreateSection(ctx, cls.ID, ss.name, ss.capacity)
			if err != nil {
				return fmt.Errorf("seed section %s/%s: %w", sc.name, ss.name, err)
			}
			students := make([]string, ss.students)
			for i := range students {
				students[i] = fmt.Sprintf("%s%s student %d", sc.code, ss.name, i+1)
			}
			if err := s.Enroll(ctx, sec.ID, students...); err != nil {
				return fmt.Errorf("seed enrollments %s/%s: %w", sc.name, ss.name, err)
			}
		}
	}
	return nil
}
