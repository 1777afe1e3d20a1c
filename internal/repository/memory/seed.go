package memory

import (
	"fmt"
	"os"

	"go-recruitment-scheduler/internal/domain"

	"gopkg.in/yaml.v3"
)

// seedFile is the yaml layout read by LoadSeed.
type seedFile struct {
	Applications []struct {
		ID              int64  `yaml:"id"`
		JobID           int64  `yaml:"job_id"`
		CandidateUserID string `yaml:"candidate_user_id"`
		Status          string `yaml:"status"`
	} `yaml:"applications"`
}

// LoadSeed preloads applications from a yaml file so a memory-backed process
// has something to schedule against.
func (s *Store) LoadSeed(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	for _, a := range seed.Applications {
		if a.ID <= 0 || a.CandidateUserID == "" {
			return 0, fmt.Errorf("seed application needs id and candidate_user_id")
		}
		status := a.Status
		if status == "" {
			status = domain.ApplicationStatusApplied
		}
		s.PutApplication(domain.Application{ID: a.ID, JobID: a.JobID, CandidateUserID: a.CandidateUserID, Status: status})
	}
	return len(seed.Applications), nil
}
