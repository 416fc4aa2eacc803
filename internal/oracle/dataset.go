package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
)

// ExcludedSetTypes are set classifications never used to resolve a name:
// Arena-only, online prize, and non-tournament product.
var ExcludedSetTypes = map[string]bool{
	"alchemy":        true,
	"treasure_chest": true,
	"vanguard":       true,
	"funny":          true,
	"promo":          true,
	"token":          true,
	"memorabilia":    true,
}

// splitSeparator joins the face names of split and double-faced cards
const splitSeparator = " // "

// Dataset is an in-memory, lookup-ready copy of the oracle snapshot.
// Records with an excluded set type are dropped at load.
type Dataset struct {
	cards  []models.OracleCard
	byName map[string]int
}

// NewDataset indexes cards, keeping feed order. The first eligible record for
// a name wins.
func NewDataset(cards []models.OracleCard) *Dataset {
	d := &Dataset{
		cards:  make([]models.OracleCard, 0, len(cards)),
		byName: make(map[string]int, len(cards)),
	}
	for _, c := range cards {
		d.add(c)
	}
	return d
}

func (d *Dataset) add(c models.OracleCard) {
	if ExcludedSetTypes[c.SetType] {
		return
	}
	d.cards = append(d.cards, c)
	if _, ok := d.byName[c.Name]; !ok {
		d.byName[c.Name] = len(d.cards) - 1
	}
}

// Len returns the number of eligible records
func (d *Dataset) Len() int {
	return len(d.cards)
}

// Lookup finds a card by exact name, falling back to the first card whose
// name starts with "<name> // " (front face of a split or double-faced card).
func (d *Dataset) Lookup(name string) (models.OracleCard, bool) {
	if i, ok := d.byName[name]; ok {
		return d.cards[i], true
	}
	prefix := name + splitSeparator
	for _, c := range d.cards {
		if strings.HasPrefix(c.Name, prefix) {
			return c, true
		}
	}
	return models.OracleCard{}, false
}

// DecodeDataset streams a JSON array of oracle cards
func DecodeDataset(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("dataset is not a JSON array")
	}

	d := &Dataset{byName: make(map[string]int)}
	for dec.More() {
		var c models.OracleCard
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal card %d: %w", len(d.cards), err)
		}
		d.add(c)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read dataset end: %w", err)
	}
	return d, nil
}

// LoadDataset decodes the snapshot file at path
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	return DecodeDataset(file)
}
