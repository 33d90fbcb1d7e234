package terminal

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extracts = map[string]string{
	"ncsoconcession.csv": `vmpp,date,drug,price_pence
a,2021-01-01,Item A,1500
a,2021-02-01,Item A,1500
a,2021-03-01,Item A,1500
z,2021-07-01,Item Z,100
`,
	"tariffprice.csv": `vmpp,date,price_pence
a,2020-10-01,1000
a,2020-11-01,1000
a,2020-12-01,1000
a,2021-01-01,1000
a,2021-02-01,1000
a,2021-03-01,1000
a,2021-04-01,1200
a,2021-05-01,1200
a,2021-06-01,1200
z,2021-07-01,50
`,
	"vmpp.csv": `id,nm,bnf_code,qtyval
a,Item A 1 pack,X,1
z,Item Z 10 pack,Z,10
`,
	"normalised_prescribing.csv": `month,bnf_code,bnf_name,items,quantity,net_cost,actual_cost
2020-11-01,X,Item X,1,100,0,0
2020-12-01,X,Item X,1,100,0,0
2021-01-01,X,Item X,1,100,1500,1400
2021-02-01,X,Item X,1,100,1500,1392
2021-03-01,X,Item X,1,100,1500,1300
2021-07-01,Z,Item Z,1,10,5,5
`,
}

// setup writes CSV extracts, a duckdb profile over them and a settings file.
func setup(t *testing.T) (dir, configPath string) {
	dir = t.TempDir()
	extractDir := filepath.Join(dir, "extracts")
	require.NoError(t, os.MkdirAll(extractDir, 0o755))
	for name, content := range extracts {
		require.NoError(t, os.WriteFile(filepath.Join(extractDir, name), []byte(content), 0o644))
	}

	profiles := filepath.Join(dir, ".concessionscfg")
	require.NoError(t, os.WriteFile(profiles, []byte(fmt.Sprintf(`[local]
type = duckdb
path = :memory:
extract_dir = %s

[remote]
type = oracle
`, extractDir)), 0o600))

	configPath = filepath.Join(dir, "concessions.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`profile: local
profiles_path: %s
cache:
  dir: %s
tables:
  concession: ncsoconcession
  tariff: tariffprice
  vmpp: vmpp
  prescribing: normalised_prescribing
methodologies:
  - name: fixed_nadp
    discount: fixed
    weighting: none
  - name: calendar_days
    discount: fixed
    weighting: calendar_days
`, profiles, filepath.Join(dir, "cache"))), 0o644))
	return dir, configPath
}

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cli := NewCLI(Options{Output: &out})
	cli.SetArgs(args)
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	err := cli.Execute(ctx)
	return out.String(), err
}

func TestCLI_Backtest(t *testing.T) {
	dir, configPath := setup(t)
	exportDir := filepath.Join(dir, "out")

	out, err := execute(t, "backtest", "-c", configPath, "-o", "summary", "--export-dir", exportDir, "--export-format", "csv,parquet")
	require.NoError(t, err)

	assert.Contains(t, out, "Period: 2021-01 to 2021-07")
	assert.Contains(t, out, "Runs: 2, priced: 1")
	assert.Contains(t, out, "- fixed_nadp: mean monthly error")
	assert.Contains(t, out, "- calendar_days: mean monthly error")

	for _, name := range []string{"monthly_errors", "financial_year_errors", "price_changes", "run_impacts"} {
		assert.FileExists(t, filepath.Join(exportDir, name+".csv"))
		assert.FileExists(t, filepath.Join(exportDir, name+".parquet"))
	}

	impacts, err := os.ReadFile(filepath.Join(exportDir, "run_impacts.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(impacts), "a,X,2021-03,2021-04,fixed_nadp,185.6")
}

func TestCLI_BacktestTable(t *testing.T) {
	_, configPath := setup(t)

	out, err := execute(t, "backtest", "-c", configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "=== fixed_nadp ===")
	assert.Contains(t, out, "=== Post-concession price changes ===")
	assert.Contains(t, out, "20.00%")
	assert.Contains(t, out, "185.60")
	assert.Contains(t, out, "=== Failures (")
}

func TestCLI_UnknownOutput(t *testing.T) {
	_, configPath := setup(t)
	_, err := execute(t, "backtest", "-c", configPath, "-o", "xml")
	assert.ErrorContains(t, err, "unknown output style")
}

func TestCLI_Runs(t *testing.T) {
	_, configPath := setup(t)

	out, err := execute(t, "runs", "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Concession runs (2)")
	assert.Contains(t, out, "2021-01")
}

func TestCLI_Reconcile(t *testing.T) {
	dir, configPath := setup(t)
	exportFile := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(exportFile, []byte("BNF code,BNF name,Quantity\nX,Item X,90\n"), 0o644))
	exportDir := filepath.Join(dir, "checks")

	out, err := execute(t, "reconcile", "-c", configPath, "--month", "2021-02", "--export-file", exportFile, "--export-dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Quantity reconciliation 2021-02 (1 BNF codes)")

	checks, err := os.ReadFile(filepath.Join(exportDir, "quantity_checks.csv"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(checks), "\n"))
	assert.Contains(t, string(checks), "2021-02,X,Item X,100,90,10")
}

func TestCLI_ReconcileRequiresFlags(t *testing.T) {
	_, configPath := setup(t)
	_, err := execute(t, "reconcile", "-c", configPath)
	assert.Error(t, err)
}

func TestCLI_Profiles(t *testing.T) {
	_, configPath := setup(t)

	out, err := execute(t, "profiles", "-c", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "local\tduckdb\n")
	assert.Contains(t, out, "remote\toracle\tunsupported type\n")
}
