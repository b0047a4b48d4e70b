// Package rollup projects a flat visit list into per-patient summaries.
// The projection is recomputed wholesale on every call: no incremental
// maintenance, no caching, no persistence. At clinic scale (thousands of
// reservations) a single pass is cheap enough that anything smarter would
// be speculative.
package rollup

import (
	"sort"
	"time"
)

// activityWindow is how recently a patient must have visited to count as
// active.
const activityWindow = 6 * 30 * 24 * time.Hour // 6 months

// Status classifies a patient's recency.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Visit is one reservation, reduced to the fields the projection needs.
type Visit struct {
	PatientName  string
	PatientPhone string
	ExamType     string
	CreatedAt    time.Time
}

// Patient is the per-phone-number summary.
type Patient struct {
	PatientName     string    `json:"patient_name"`
	PatientPhone    string    `json:"patient_phone"`
	TotalVisits     int       `json:"total_visits"`
	FirstVisitAt    time.Time `json:"first_visit_at"`
	LastVisitAt     time.Time `json:"last_visit_at"`
	RecentExamTypes []string  `json:"recent_exam_types"`
	Status          Status    `json:"status"`
}

// Build groups visits by phone number and accumulates visit counts,
// activity windows and the set of exam types seen. A patient is Active iff
// their last visit is within six months of now. The result is ordered
// most-recently-active first.
func Build(visits []Visit, now time.Time) []Patient {
	byPhone := make(map[string]*Patient)
	examSeen := make(map[string]map[string]struct{})

	for _, v := range visits {
		p, ok := byPhone[v.PatientPhone]
		if !ok {
			p = &Patient{
				PatientName:  v.PatientName,
				PatientPhone: v.PatientPhone,
				FirstVisitAt: v.CreatedAt,
				LastVisitAt:  v.CreatedAt,
			}
			byPhone[v.PatientPhone] = p
			examSeen[v.PatientPhone] = make(map[string]struct{})
		}

		p.TotalVisits++
		if v.CreatedAt.Before(p.FirstVisitAt) {
			p.FirstVisitAt = v.CreatedAt
		}
		if !v.CreatedAt.Before(p.LastVisitAt) {
			p.LastVisitAt = v.CreatedAt
			p.PatientName = v.PatientName // most recent spelling wins
		}

		if _, seen := examSeen[v.PatientPhone][v.ExamType]; !seen {
			examSeen[v.PatientPhone][v.ExamType] = struct{}{}
			p.RecentExamTypes = append(p.RecentExamTypes, v.ExamType)
		}
	}

	patients := make([]Patient, 0, len(byPhone))
	for _, p := range byPhone {
		if now.Sub(p.LastVisitAt) < activityWindow {
			p.Status = StatusActive
		} else {
			p.Status = StatusInactive
		}
		patients = append(patients, *p)
	}

	sort.Slice(patients, func(i, j int) bool {
		return patients[i].LastVisitAt.After(patients[j].LastVisitAt)
	})

	return patients
}
