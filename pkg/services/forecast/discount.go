package forecast

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/de-tools/concession-forecast/pkg/models/domain"
)

// DiscountSource yields the fraction of list cost retained after the national
// average discount for a month.
type DiscountSource interface {
	Name() string
	Factor(m domain.Month) (float64, bool)
}

// FixedDiscount applies the same discount percentage to every month.
type FixedDiscount struct {
	Percent float64
}

func (FixedDiscount) Name() string {
	return "fixed"
}

func (d FixedDiscount) Factor(_ domain.Month) (float64, bool) {
	return RetainedFraction(d.Percent), true
}

// MonthlyDiscount applies the published discount percentage of each month.
type MonthlyDiscount struct {
	percents map[domain.Month]float64
}

func NewMonthlyDiscount(percents map[domain.Month]float64) *MonthlyDiscount {
	return &MonthlyDiscount{percents: percents}
}

func (*MonthlyDiscount) Name() string {
	return "monthly"
}

func (d *MonthlyDiscount) Factor(m domain.Month) (float64, bool) {
	p, ok := d.percents[m]
	if !ok {
		return 0, false
	}
	return RetainedFraction(p), true
}

// LoadMonthlyDiscountFile reads a CSV of monthly discount percentages.
func LoadMonthlyDiscountFile(path string) (*MonthlyDiscount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open discount file: %w", err)
	}
	defer f.Close()
	return ReadMonthlyDiscount(f)
}

// ReadMonthlyDiscount parses a CSV with "month" and "nadp" columns, in any
// order. Percentages are in [0,100].
func ReadMonthlyDiscount(r io.Reader) (*MonthlyDiscount, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read discount header: %w", err)
	}
	monthIdx, nadpIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "month":
			monthIdx = i
		case "nadp":
			nadpIdx = i
		}
	}
	if monthIdx < 0 || nadpIdx < 0 {
		return nil, fmt.Errorf("discount file needs month and nadp columns, got %v", header)
	}

	percents := make(map[domain.Month]float64)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read discount line %d: %w", line, err)
		}
		m, err := domain.ParseMonth(strings.TrimSpace(rec[monthIdx]))
		if err != nil {
			return nil, fmt.Errorf("discount line %d: %w", line, err)
		}
		p, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rec[nadpIdx]), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("discount line %d: invalid nadp %q", line, rec[nadpIdx])
		}
		if p < 0 || p > 100 {
			return nil, fmt.Errorf("discount line %d: nadp %v outside [0,100]", line, p)
		}
		if _, dup := percents[m]; dup {
			return nil, &domain.DataIntegrityError{Stage: "discount", Key: "nadp", Month: m, Reason: "duplicate month"}
		}
		percents[m] = p
	}
	return NewMonthlyDiscount(percents), nil
}
