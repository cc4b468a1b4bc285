package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestClassPatchApply(t *testing.T) {
	class := Class{ID: "c1", Name: "3A", Grade: "3", Subject: "Literacy", StudentCount: 7}

	patched := ClassPatch{Name: strPtr("3B")}.Apply(class)
	assert.Equal(t, "3B", patched.Name)
	assert.Equal(t, "3", patched.Grade, "unset fields stay untouched")
	assert.Equal(t, "Literacy", patched.Subject)
	assert.Equal(t, 7, patched.StudentCount)

	assert.True(t, ClassPatch{}.Empty())
	assert.False(t, ClassPatch{Grade: strPtr("4")}.Empty())
}

func TestStudentPatchApply(t *testing.T) {
	student := Student{ID: "s1", Name: "Ana", ClassID: "c1", ReadingScore: 55}

	patched := StudentPatch{Name: strPtr("Ana B"), ClassID: strPtr("c2")}.Apply(student)
	assert.Equal(t, "Ana B", patched.Name)
	assert.Equal(t, "c2", patched.ClassID)
	assert.Equal(t, 55.0, patched.ReadingScore, "scores never move via patch")

	assert.True(t, StudentPatch{}.Empty())
}
