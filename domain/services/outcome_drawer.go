package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"totopool/domain/entities"
	"totopool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// outcomeDrawer asks the result source for outcomes and falls back to local
// randomness on any failure
type outcomeDrawer struct {
	source interfaces.ResultSource
	force  *entities.Outcome
}

// NewOutcomeDrawer creates a drawer. source may be nil to always draw locally;
// force, when set, makes every match end with that outcome.
func NewOutcomeDrawer(source interfaces.ResultSource, force *entities.Outcome) interfaces.OutcomeDrawer {
	return &outcomeDrawer{
		source: source,
		force:  force,
	}
}

func (d *outcomeDrawer) Draw(ctx context.Context, n int) []entities.Outcome {
	if n <= 0 {
		return []entities.Outcome{}
	}

	if d.force != nil {
		outcomes := make([]entities.Outcome, n)
		for i := range outcomes {
			outcomes[i] = *d.force
		}
		log.WithFields(log.Fields{
			"count":   n,
			"outcome": *d.force,
		}).Warn("Using forced outcome for every match")
		return outcomes
	}

	if d.source != nil {
		outcomes, err := d.source.Generate(ctx, n)
		if err == nil {
			err = validateOutcomes(outcomes, n)
		}
		if err == nil {
			return outcomes
		}
		log.WithError(err).WithField("count", n).Warn("Result source failed, drawing outcomes locally")
	}

	return drawLocal(n)
}

func validateOutcomes(outcomes []entities.Outcome, n int) error {
	if len(outcomes) != n {
		return fmt.Errorf("%w: got %d, want %d", entities.ErrResultCountMismatch, len(outcomes), n)
	}
	for _, o := range outcomes {
		if _, err := entities.ParseOutcome(string(o)); err != nil {
			return err
		}
	}
	return nil
}

// drawLocal picks each outcome uniformly with crypto/rand
func drawLocal(n int) []entities.Outcome {
	outcomes := make([]entities.Outcome, n)
	max := big.NewInt(int64(len(entities.AllOutcomes)))
	for i := range outcomes {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// rand.Reader does not return errors as of Go 1.24
			panic(fmt.Sprintf("failed to read random outcome: %v", err))
		}
		outcomes[i] = entities.AllOutcomes[v.Int64()]
	}
	return outcomes
}
