package figcompress

import (
	"encoding/json"
	"fmt"

	"github.com/paulschiretz/pgl-figcompress/pkg/util"
)

// Outcome is the result of processing a single figure.
type Outcome int

const (
	// Failed means no output was produced by this run.
	Failed Outcome = iota
	// Compressed means the output was re-encoded or rewritten.
	Compressed
	// CopiedFallback means the output is a verbatim copy of the input.
	CopiedFallback
)

var outcomeToString = map[Outcome]string{
	Failed:         "failed",
	Compressed:     "compressed",
	CopiedFallback: "copied",
}

var stringToOutcome map[string]Outcome

func init() {
	stringToOutcome = util.InvertMap(outcomeToString)
}

func (o Outcome) String() string {
	if str, ok := outcomeToString[o]; ok {
		return str
	}
	return fmt.Sprintf("unknown_outcome(%d)", int(o))
}

// Succeeded reports whether an output file exists for the figure.
func (o Outcome) Succeeded() bool {
	return o == Compressed || o == CopiedFallback
}

// MarshalJSON implements the json.Marshaler interface for Outcome.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Outcome.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("outcome should be a string, got %s", data)
	}
	outcome, ok := stringToOutcome[s]
	if !ok {
		return fmt.Errorf("invalid outcome: %q", s)
	}
	*o = outcome
	return nil
}
