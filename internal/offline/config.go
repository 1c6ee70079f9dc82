package offline

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/cohort/internal/domain/model"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Config holds the options of one offline run.
type Config struct {
	In        string        // fixture path
	Out       string        // report path, "-" or empty for stdout
	Format    string        // csv or xlsx; empty infers from Out
	Seed      int64         // project shuffle seed
	TimeLimit time.Duration // solver budget
	Threshold float64       // partner match threshold
	Verbose   bool          // log the per-participant table
}

// format resolves the output format from Format and the Out extension.
func (c *Config) format() (string, error) {
	f := strings.ToLower(strings.TrimSpace(c.Format))
	if f == "" {
		f = FormatCSV
		if strings.HasSuffix(strings.ToLower(c.Out), ".xlsx") {
			f = FormatXLSX
		}
	}
	switch f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: format %q", ErrUsage, c.Format)
	}
}

// Fixture is the YAML shape of an offline problem.
type Fixture struct {
	Semester     string               `koanf:"semester"`
	Projects     []FixtureProject     `koanf:"projects"`
	Participants []FixtureParticipant `koanf:"participants"`
}

// FixtureProject is one project line.
type FixtureProject struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// FixtureParticipant is one registration line. Role and experience use the
// stored spellings.
type FixtureParticipant struct {
	ID            string   `koanf:"id"`
	FirstName     string   `koanf:"first_name"`
	LastName      string   `koanf:"last_name"`
	Email         string   `koanf:"email"`
	Role          string   `koanf:"role"`
	Director      bool     `koanf:"director"`
	International bool     `koanf:"international"`
	Experience    string   `koanf:"experience"`
	Projects      []string `koanf:"projects"`
	Partners      []string `koanf:"partners"`
}

// Stats holds run statistics.
type Stats struct {
	Participants int
	Projects     int
	Status       string
	Objective    int64
	Summary      model.RunSummary
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
