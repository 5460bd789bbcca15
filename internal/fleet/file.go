package fleet

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oeoc/neverstop/internal/errors"
)

// LoadFile reads and validates a YAML fleet definition.
//
//	agents:
//	  - id: agent-1
//	    orchestrator_id: o1
//	    type: worker
//	    status: idle
//	    capability_tags: [OCR, PDF]
//	    health_score: 92
//	tasks:
//	  - id: tsk-1
//	    label: Site Map Vectorization
//	    assigned_to: agent-1
//	    priority: low
//	    workflow_id: wf1
func LoadFile(path string) (Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fleet{}, fmt.Errorf("reading fleet file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return Fleet{}, fmt.Errorf("fleet file %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML fleet definition. Unknown keys are rejected.
func Parse(data []byte) (Fleet, error) {
	var f Fleet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fleet{}, errors.NewValidationError("malformed YAML").WithCause(err)
	}

	if err := Validate(f); err != nil {
		return Fleet{}, err
	}
	return f, nil
}

// Validate checks a fleet for duplicate ids, unknown enumerations, health
// scores outside [0,100], tasks assigned to agents that do not exist and
// imported events without a timestamp.
// All problems are reported together.
func Validate(f Fleet) error {
	var errs []error

	agents := make(map[string]bool, len(f.Agents))
	for i, a := range f.Agents {
		field := func(name string) string { return fmt.Sprintf("agents[%d].%s", i, name) }

		switch {
		case a.ID == "":
			errs = append(errs, errors.NewValidationError("id is required").WithField(field("id")))
		case agents[a.ID]:
			errs = append(errs, errors.NewValidationError("duplicate agent id").
				WithField(field("id")).WithValue(a.ID).WithCause(errors.ErrDuplicateID))
		}
		agents[a.ID] = true

		if !a.Type.Valid() {
			errs = append(errs, errors.NewValidationError("unknown agent type").WithField(field("type")).WithValue(a.Type))
		}
		if !a.Status.Valid() {
			errs = append(errs, errors.NewValidationError("unknown status").WithField(field("status")).WithValue(a.Status))
		}
		if a.HealthScore < 0 || a.HealthScore > 100 {
			errs = append(errs, errors.NewValidationError("health score out of range").
				WithField(field("health_score")).WithValue(a.HealthScore))
		}
	}

	tasks := make(map[string]bool, len(f.Tasks))
	for i, t := range f.Tasks {
		field := func(name string) string { return fmt.Sprintf("tasks[%d].%s", i, name) }

		switch {
		case t.ID == "":
			errs = append(errs, errors.NewValidationError("id is required").WithField(field("id")))
		case tasks[t.ID]:
			errs = append(errs, errors.NewValidationError("duplicate task id").
				WithField(field("id")).WithValue(t.ID).WithCause(errors.ErrDuplicateID))
		}
		tasks[t.ID] = true

		if !agents[t.AssignedTo] {
			errs = append(errs, errors.NewValidationError("assigned to unknown agent").
				WithField(field("assigned_to")).WithValue(t.AssignedTo).WithCause(errors.ErrAgentNotFound))
		}
		if !t.Priority.Valid() {
			errs = append(errs, errors.NewValidationError("unknown priority").WithField(field("priority")).WithValue(t.Priority))
		}
	}

	for i, e := range f.Events {
		field := func(name string) string { return fmt.Sprintf("events[%d].%s", i, name) }

		if e.Timestamp.IsZero() || e.Timestamp.Before(time.Unix(0, 0)) {
			errs = append(errs, errors.NewValidationError("timestamp must be set").
				WithField(field("timestamp")).WithValue(e.Timestamp))
		}
		if !e.Type.Valid() {
			errs = append(errs, errors.NewValidationError("unknown event type").WithField(field("type")).WithValue(e.Type))
		}
		if !e.Severity.Valid() {
			errs = append(errs, errors.NewValidationError("unknown severity").WithField(field("severity")).WithValue(e.Severity))
		}
	}

	return errors.Join(errs...)
}
