package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/de-tools/concession-forecast/pkg/adapters"
	"github.com/de-tools/concession-forecast/pkg/models/domain"
	"github.com/de-tools/concession-forecast/pkg/models/store"
	"github.com/de-tools/concession-forecast/pkg/services/forecast"
)

// ExportQuantity is one row of a published concession cost export.
type ExportQuantity struct {
	BNFCode  string
	Quantity float64
}

// LoadExportFile reads a published concession cost export CSV.
func LoadExportFile(path string) ([]ExportQuantity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()
	return ReadExport(f)
}

// ReadExport parses the "BNF code" and "Quantity" columns of an export; other
// columns are ignored.
func ReadExport(r io.Reader) ([]ExportQuantity, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	codeIdx, qtyIdx := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "bnf code", "bnf_code":
			codeIdx = i
		case "quantity":
			qtyIdx = i
		}
	}
	if codeIdx < 0 || qtyIdx < 0 {
		return nil, fmt.Errorf("export needs BNF code and Quantity columns, got %v", header)
	}

	var rows []ExportQuantity
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export line %d: %w", line, err)
		}
		if codeIdx >= len(rec) || qtyIdx >= len(rec) {
			return nil, fmt.Errorf("export line %d: too few columns", line)
		}
		q, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(rec[qtyIdx]), ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("export line %d: invalid quantity %q", line, rec[qtyIdx])
		}
		rows = append(rows, ExportQuantity{BNFCode: strings.TrimSpace(rec[codeIdx]), Quantity: q})
	}
	return rows, nil
}

// Reconcile compares warehouse quantity for the concession BNF codes of a
// month with the export. Only codes present on both sides are compared;
// export rows for the same code are summed. Results are sorted by difference,
// most negative first.
func Reconcile(month domain.Month, packs []domain.ConcessionPack, observations []domain.PrescribingObservation, export []ExportQuantity) []domain.QuantityCheck {
	concession := make(map[string]struct{})
	for _, p := range packs {
		if p.Month == month {
			concession[p.BNFCode] = struct{}{}
		}
	}

	exported := make(map[string]float64, len(export))
	for _, e := range export {
		exported[e.BNFCode] += e.Quantity
	}

	var checks []domain.QuantityCheck
	for _, o := range observations {
		if o.Month != month {
			continue
		}
		if _, ok := concession[o.BNFCode]; !ok {
			continue
		}
		q, ok := exported[o.BNFCode]
		if !ok {
			continue
		}
		checks = append(checks, domain.QuantityCheck{
			BNFCode:           o.BNFCode,
			BNFName:           o.BNFName,
			WarehouseQuantity: o.Quantity,
			ExportQuantity:    q,
			Difference:        o.Quantity - q,
		})
	}
	sort.SliceStable(checks, func(i, j int) bool {
		if checks[i].Difference != checks[j].Difference {
			return checks[i].Difference < checks[j].Difference
		}
		return checks[i].BNFCode < checks[j].BNFCode
	})
	return checks
}

// ReconcileDataset selects the month's concession packs from an acquired
// dataset and reconciles them with the export. Pack selection problems are
// returned alongside the checks.
func ReconcileDataset(ds *store.Dataset, month domain.Month, divisor forecast.PackDivisor, export []ExportQuantity) ([]domain.QuantityCheck, error) {
	packs, err := forecast.SelectPacks(
		adapters.MapStoreConcessionRowsToDomain(ds.Concessions),
		adapters.MapStoreTariffRowsToDomain(ds.Tariff),
		adapters.MapStoreVMPPRowsToDomain(ds.VMPP),
		divisor,
	)
	checks := Reconcile(month, packs, adapters.MapStorePrescribingRowsToDomain(ds.Prescribing), export)
	return checks, err
}
