package models

import "strings"

// AllowedBatch is a batch a teacher may be scheduled with, and the subject taught there.
type AllowedBatch struct {
	BatchID   string `json:"batch_id"`
	BatchName string `json:"batch_name"`
	Subject   string `json:"subject"`
}

// TeacherLoad is a teacher's working-day and batch-eligibility profile.
type TeacherLoad struct {
	TeacherID       string         `json:"teacher_id"`
	TeacherName     string         `json:"teacher_name"`
	WorkingDays     []string       `json:"working_days"`
	AllowedBatches  []AllowedBatch `json:"allowed_batches"`
	PeriodsPerWeek  int            `json:"periods_per_week"`
	AssignedPeriods int            `json:"assigned_periods"`
}

// WorksOn reports whether day is one of the teacher's working days.
func (t TeacherLoad) WorksOn(day string) bool {
	for _, d := range t.WorkingDays {
		if strings.EqualFold(strings.TrimSpace(d), strings.TrimSpace(day)) {
			return true
		}
	}
	return false
}

// Batch looks up an allowed batch by id.
func (t TeacherLoad) Batch(batchID string) (AllowedBatch, bool) {
	for _, b := range t.AllowedBatches {
		if b.BatchID == batchID {
			return b, true
		}
	}
	return AllowedBatch{}, false
}
