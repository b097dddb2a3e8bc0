package domain

import (
	"reflect"
	"testing"
)

func TestParseCourseCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "CSE 1310", want: "CSE 1310"},
		{raw: "cse   1310", want: "CSE 1310"},
		{raw: "MATH 1426", want: "MATH 1426"},
		{raw: "ME-AE 2301", want: "ME-AE 2301"},
		{raw: "CE 3131", want: "CE 3131"},
		{raw: "C 1310", wantErr: true},
		{raw: "MATHS 1426", wantErr: true},
		{raw: "CSE 131", wantErr: true},
		{raw: "CSE 13100", wantErr: true},
		{raw: "CSE", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCourseCode(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %s", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCourseCode(%q) error: %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Fatalf("ParseCourseCode(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFindCourseCodes(t *testing.T) {
	t.Parallel()

	text := "Prerequisite: MATH 1426 and PHYS 1443, or MATH 1426 with a grade of C. See ABCDE 1234 or CSE 13100."
	got := FindCourseCodes(text)

	want := []CourseCode{MustParseCourseCode("MATH 1426"), MustParseCourseCode("PHYS 1443")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FindCourseCodes = %v, want %v", got, want)
	}
}

func TestSameDepartment(t *testing.T) {
	t.Parallel()

	code := MustParseCourseCode("ACE 1000")
	if !code.SameDepartment("ce") {
		t.Fatal("expected containment match for CE")
	}
	if code.SameDepartment("CSE") {
		t.Fatal("ACE should not match CSE")
	}
	if code.SameDepartment("") {
		t.Fatal("empty department must never match")
	}
}

func TestCodeSetSortedAndUnion(t *testing.T) {
	t.Parallel()

	a := NewCodeSet(MustParseCourseCode("PHYS 1443"), MustParseCourseCode("MATH 1426"))
	b := NewCodeSet(MustParseCourseCode("MATH 1426"), MustParseCourseCode("CSE 1310"))

	u := a.Union(b)
	if u.Len() != 3 {
		t.Fatalf("expected 3 codes in union, got %d", u.Len())
	}
	want := []string{"CSE 1310", "MATH 1426", "PHYS 1443"}
	if got := u.Strings(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Strings = %v, want %v", got, want)
	}
	if a.Len() != 2 {
		t.Fatalf("union must not mutate receiver, len=%d", a.Len())
	}
}

func TestNewCourseRecordFillsEmptySets(t *testing.T) {
	t.Parallel()

	entry := CourseEntry{Code: MustParseCourseCode("CSE 1310"), Name: "INTRO", Description: "text"}
	rec := NewCourseRecord(entry, Requisites{})
	if rec.Prerequisites == nil || rec.Corequisites == nil {
		t.Fatal("expected non-nil requisite sets")
	}
	if rec.Code != entry.Code || rec.Name != "INTRO" || rec.Description != "text" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
