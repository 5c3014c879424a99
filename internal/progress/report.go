package progress

import (
	"context"
	"sort"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// MaterialReport is one row of the course progress tree.
type MaterialReport struct {
	MaterialID   catalog.MaterialID `json:"material_id"`
	Status       Status             `json:"status"`
	ProgressPct  float64            `json:"progress_pct"`
	TimeSpentSec int64              `json:"time_spent_sec"`
	Score        *float64           `json:"score,omitempty"`
	Attempts     int                `json:"attempts"`
}

type SectionReport struct {
	SectionID   int64            `json:"section_id"`
	Status      Status           `json:"status"`
	CompletedAt *int64           `json:"completed_at,omitempty"`
	Materials   []MaterialReport `json:"materials"`
}

// CourseReport is the nested course→section→material progress tree.
type CourseReport struct {
	StudentID          string           `json:"student_id"`
	CourseID           int64            `json:"course_id"`
	EnrollmentStatus   EnrollmentStatus `json:"enrollment_status"`
	OverallProgressPct float64          `json:"overall_progress_pct"`
	TotalMaterials     int              `json:"total_materials"`
	CompletedMaterials int              `json:"completed_materials"`
	TotalTimeSpentSec  int64            `json:"total_time_spent_sec"`
	AverageScore       *float64         `json:"average_score,omitempty"`
	Sections           []SectionReport  `json:"sections"`
}

// Reporter assembles read-only progress views. It never writes.
type Reporter struct {
	store     Store
	structure catalog.Structure
}

func NewReporter(store Store, structure catalog.Structure) *Reporter {
	return &Reporter{store: store, structure: structure}
}

// CourseReport walks the course structure, not the visit history: every
// required material appears in the tree, and the ones the student never
// touched show as not_started with 0%. Touched materials outside the required
// list (optional content) are appended after the required ones so their time
// and scores still count.
func (r *Reporter) CourseReport(ctx context.Context, studentID string, courseID int64) (CourseReport, error) {
	enr, err := r.store.GetEnrollment(ctx, studentID, courseID)
	if err != nil {
		return CourseReport{}, err
	}

	records, err := r.store.ListCourseRecords(ctx, studentID, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	recBySection := map[int64]map[catalog.MaterialID]Record{}
	for _, rec := range records {
		if recBySection[rec.SectionID] == nil {
			recBySection[rec.SectionID] = map[catalog.MaterialID]Record{}
		}
		recBySection[rec.SectionID][rec.MaterialID] = rec
	}

	sectionIDs, err := r.structure.RequiredSectionIDs(ctx, courseID)
	if err != nil {
		return CourseReport{}, err
	}
	inStructure := map[int64]bool{}
	for _, id := range sectionIDs {
		inStructure[id] = true
	}
	// Sections only the visit history knows about go after the structural ones.
	var extra []int64
	for id := range recBySection {
		if !inStructure[id] {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	sectionIDs = append(sectionIDs, extra...)

	rep := CourseReport{
		StudentID:        studentID,
		CourseID:         courseID,
		EnrollmentStatus: enr.Status,
	}

	var pctSum, scoreSum float64
	scored := 0

	for _, sectionID := range sectionIDs {
		sp, err := r.store.GetSectionProgress(ctx, studentID, sectionID)
		if err != nil {
			return CourseReport{}, err
		}
		sec := SectionReport{SectionID: sectionID, Status: sp.Status}
		if sp.CompletedAt != nil {
			ts := sp.CompletedAt.Unix()
			sec.CompletedAt = &ts
		}

		var materialIDs []catalog.MaterialID
		if inStructure[sectionID] {
			materialIDs, err = r.structure.RequiredMaterialIDs(ctx, sectionID)
			if err != nil {
				return CourseReport{}, err
			}
		}
		required := map[catalog.MaterialID]bool{}
		for _, id := range materialIDs {
			required[id] = true
		}
		var touched []catalog.MaterialID
		for id := range recBySection[sectionID] {
			if !required[id] {
				touched = append(touched, id)
			}
		}
		sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
		materialIDs = append(materialIDs, touched...)

		for _, materialID := range materialIDs {
			rec, ok := recBySection[sectionID][materialID]
			if !ok {
				rec = Record{MaterialID: materialID, Status: StatusNotStarted}
			}
			sec.Materials = append(sec.Materials, MaterialReport{
				MaterialID:   materialID,
				Status:       rec.Status,
				ProgressPct:  rec.ProgressPct,
				TimeSpentSec: rec.TimeSpentSec,
				Score:        rec.Score,
				Attempts:     rec.Attempts,
			})
			rep.TotalMaterials++
			rep.TotalTimeSpentSec += rec.TimeSpentSec
			pctSum += rec.ProgressPct
			if rec.Status == StatusCompleted {
				rep.CompletedMaterials++
			}
			if rec.Score != nil {
				scoreSum += *rec.Score
				scored++
			}
		}
		rep.Sections = append(rep.Sections, sec)
	}

	if rep.TotalMaterials > 0 {
		rep.OverallProgressPct = pctSum / float64(rep.TotalMaterials)
	}
	if scored > 0 {
		avg := scoreSum / float64(scored)
		rep.AverageScore = &avg
	}
	return rep, nil
}
