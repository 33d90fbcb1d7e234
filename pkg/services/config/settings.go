package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "CONCESSIONS"

// Settings are the analysis settings of a run.
type Settings struct {
	Profile       string                `mapstructure:"profile"`
	ProfilesPath  string                `mapstructure:"profiles_path"`
	Timeout       time.Duration         `mapstructure:"timeout"`
	Cache         CacheSettings         `mapstructure:"cache"`
	Tables        TableSettings         `mapstructure:"tables"`
	Forecast      ForecastSettings      `mapstructure:"forecast"`
	Pricing       PricingSettings       `mapstructure:"pricing"`
	Seasonal      SeasonalSettings      `mapstructure:"seasonal"`
	Calendar      CalendarSettings      `mapstructure:"calendar"`
	Report        ReportSettings        `mapstructure:"report"`
	Export        ExportSettings        `mapstructure:"export"`
	Methodologies []MethodologySettings `mapstructure:"methodologies"`
}

type CacheSettings struct {
	Dir    string `mapstructure:"dir"`
	Policy string `mapstructure:"policy"`
}

type TableSettings struct {
	Concession  string `mapstructure:"concession"`
	Tariff      string `mapstructure:"tariff"`
	VMPP        string `mapstructure:"vmpp"`
	Prescribing string `mapstructure:"prescribing"`
}

type ForecastSettings struct {
	LagMonths           int      `mapstructure:"lag_months"`
	DiscountPercent     float64  `mapstructure:"discount_percent"`
	NADPFile            string   `mapstructure:"nadp_file"`
	PackCountedBNFCodes []string `mapstructure:"pack_counted_bnf_codes"`
}

type PricingSettings struct {
	Window        int `mapstructure:"window"`
	PreOffset     int `mapstructure:"pre_offset"`
	PostOffset    int `mapstructure:"post_offset"`
	MinPostMonths int `mapstructure:"min_post_months"`
}

type SeasonalSettings struct {
	From     string   `mapstructure:"from"`
	To       string   `mapstructure:"to"`
	Chapters []string `mapstructure:"chapters"`
}

type CalendarSettings struct {
	HolidaysSource string `mapstructure:"holidays_source"`
	Division       string `mapstructure:"division"`
}

// ReportSettings bounds financial-year output by ending year; zero is open.
type ReportSettings struct {
	FromYear int `mapstructure:"from_year"`
	ToYear   int `mapstructure:"to_year"`
}

type ExportSettings struct {
	Dir      string   `mapstructure:"dir"`
	Formats  []string `mapstructure:"formats"`
	S3Bucket string   `mapstructure:"s3_bucket"`
	S3Prefix string   `mapstructure:"s3_prefix"`
}

type MethodologySettings struct {
	Name      string `mapstructure:"name"`
	Discount  string `mapstructure:"discount"`
	Weighting string `mapstructure:"weighting"`
	Quantity  string `mapstructure:"quantity"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("profile", "")
	v.SetDefault("profiles_path", DefaultProfilesPath())
	v.SetDefault("timeout", 10*time.Minute)

	v.SetDefault("cache.dir", "data")
	v.SetDefault("cache.policy", "reuse")

	v.SetDefault("tables.concession", "ebmdatalab.dmd.ncsoconcession")
	v.SetDefault("tables.tariff", "ebmdatalab.dmd.tariffprice")
	v.SetDefault("tables.vmpp", "ebmdatalab.dmd.vmpp")
	v.SetDefault("tables.prescribing", "ebmdatalab.hscic.normalised_prescribing")

	v.SetDefault("forecast.lag_months", 2)
	v.SetDefault("forecast.discount_percent", 7.2)
	v.SetDefault("forecast.nadp_file", "")
	v.SetDefault("forecast.pack_counted_bnf_codes", []string{"0206010F0AACJCJ", "1202010U0AAAAAA"})

	v.SetDefault("pricing.window", 3)
	v.SetDefault("pricing.pre_offset", -1)
	v.SetDefault("pricing.post_offset", 3)
	v.SetDefault("pricing.min_post_months", 3)

	v.SetDefault("seasonal.from", "2016-03")
	v.SetDefault("seasonal.to", "2020-02")
	v.SetDefault("seasonal.chapters", []string{"01", "02", "03", "04", "06", "10"})

	v.SetDefault("calendar.holidays_source", "https://www.gov.uk/bank-holidays.json")
	v.SetDefault("calendar.division", "england-and-wales")

	v.SetDefault("report.from_year", 0)
	v.SetDefault("report.to_year", 0)

	v.SetDefault("export.dir", "")
	v.SetDefault("export.formats", []string{"csv"})
	v.SetDefault("export.s3_bucket", "")
	v.SetDefault("export.s3_prefix", "")

	v.SetDefault("methodologies", []map[string]any{
		{"name": "fixed_nadp", "discount": "fixed", "weighting": "none", "quantity": "lagged"},
		{"name": "fixed_nadp_workdays", "discount": "fixed", "weighting": "workdays", "quantity": "lagged"},
	})
}

// LoadSettings reads the YAML settings file, if any, over the defaults.
// CONCESSIONS_* environment variables override both, e.g.
// CONCESSIONS_CACHE_POLICY=refresh.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Settings
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Settings) Validate() error {
	var errs []error
	if s.Forecast.LagMonths <= 0 {
		errs = append(errs, fmt.Errorf("forecast.lag_months must be positive"))
	}
	if s.Forecast.DiscountPercent < 0 || s.Forecast.DiscountPercent > 100 {
		errs = append(errs, fmt.Errorf("forecast.discount_percent must be within [0,100]"))
	}
	if s.Pricing.Window <= 0 {
		errs = append(errs, fmt.Errorf("pricing.window must be positive"))
	}
	if s.Pricing.MinPostMonths < 0 {
		errs = append(errs, fmt.Errorf("pricing.min_post_months must not be negative"))
	}
	if s.Report.FromYear != 0 && s.Report.ToYear != 0 && s.Report.FromYear > s.Report.ToYear {
		errs = append(errs, fmt.Errorf("report.from_year is after report.to_year"))
	}
	if len(s.Methodologies) == 0 {
		errs = append(errs, fmt.Errorf("at least one methodology is required"))
	}
	seen := make(map[string]struct{}, len(s.Methodologies))
	for _, m := range s.Methodologies {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("methodology without a name"))
			continue
		}
		if _, dup := seen[m.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate methodology %q", m.Name))
		}
		seen[m.Name] = struct{}{}
		if m.Discount == "monthly" && s.Forecast.NADPFile == "" {
			errs = append(errs, fmt.Errorf("methodology %q uses monthly discount but forecast.nadp_file is not set", m.Name))
		}
	}
	return errors.Join(errs...)
}
