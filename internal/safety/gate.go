// Package safety holds the acknowledgment gate a worker passes through
// before starting a task that carries safety documents.
package safety

import (
	"errors"
	"fmt"

	"github.com/parks-gardens/fieldops-api/internal/models"
)

type State string

const (
	StateClosed    State = "closed"
	StateOpen      State = "open"
	StateConfirmed State = "confirmed"
)

var (
	ErrGateNotOpen            = errors.New("acknowledgment gate is not open")
	ErrDocumentNotAttached    = errors.New("document is not attached to the task")
	ErrAcknowledgmentRequired = errors.New("every attached safety document must be acknowledged")
)

// Gate tracks acknowledgments for one start attempt on one task.
// Acknowledgments only live while the gate is open.
type Gate struct {
	state    State
	required map[models.DocumentType]bool
	acked    map[models.DocumentType]bool
}

// NewGate builds a closed gate requiring one acknowledgment per attached
// document type.
func NewGate(docs []models.DocumentRef) *Gate {
	g := &Gate{
		state:    StateClosed,
		required: make(map[models.DocumentType]bool, len(docs)),
		acked:    make(map[models.DocumentType]bool, len(docs)),
	}
	for _, d := range docs {
		g.required[d.Type] = true
	}
	return g
}

// ForTask is NewGate over the task's attached documents.
func ForTask(task *models.Task) *Gate {
	return NewGate(task.AttachedDocuments())
}

func (g *Gate) State() State { return g.state }

// Open starts a fresh attempt; any earlier acknowledgments are dropped.
func (g *Gate) Open() {
	g.acked = make(map[models.DocumentType]bool, len(g.required))
	g.state = StateOpen
}

// Acknowledge marks a document type as read.
func (g *Gate) Acknowledge(docType models.DocumentType) error {
	if g.state != StateOpen {
		return ErrGateNotOpen
	}
	if !g.required[docType] {
		return fmt.Errorf("%w: %s", ErrDocumentNotAttached, docType)
	}
	g.acked[docType] = true
	return nil
}

// Requires reports whether the task carries a document of this type.
func (g *Gate) Requires(docType models.DocumentType) bool {
	return g.required[docType]
}

// Missing lists required document types that are not acknowledged yet.
func (g *Gate) Missing() []models.DocumentType {
	var missing []models.DocumentType
	for _, t := range []models.DocumentType{models.DocumentTypeRiskAssessment, models.DocumentTypeSWMS} {
		if g.required[t] && !g.acked[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// Ready reports whether Confirm would succeed.
func (g *Gate) Ready() bool {
	return g.state == StateOpen && len(g.Missing()) == 0
}

// Confirm closes the attempt successfully. A task with no attached
// documents is always confirmable.
func (g *Gate) Confirm() error {
	if g.state != StateOpen {
		return ErrGateNotOpen
	}
	if missing := g.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrAcknowledgmentRequired, missing)
	}
	g.state = StateConfirmed
	return nil
}

// Cancel abandons the attempt and discards acknowledgments.
func (g *Gate) Cancel() {
	g.acked = make(map[models.DocumentType]bool, len(g.required))
	g.state = StateClosed
}

// Reset returns a confirmed gate to closed for the next attempt.
func (g *Gate) Reset() {
	g.Cancel()
}
