package migrations

import (
	"sectorsguard/src/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedConfig struct {
	dataset    string
	rules      string
	recipients []string
}

var defaultConfigs = []seedConfig{
	{
		dataset:    "idx_combine_financials_annual",
		rules:      `{"description":"Annual financial statements validation","alert_level":"warning"}`,
		recipients: []string{"financial-team@supertypeai.com", "data-alerts@supertypeai.com"},
	},
	{
		dataset:    "idx_combine_financials_quarterly",
		rules:      `{"description":"Quarterly financial statements validation","alert_level":"warning"}`,
		recipients: []string{"financial-team@supertypeai.com", "data-alerts@supertypeai.com"},
	},
	{
		dataset:    "idx_daily_data",
		rules:      `{"description":"Daily stock price movements validation","alert_level":"critical"}`,
		recipients: []string{"trading-team@supertypeai.com", "market-alerts@supertypeai.com"},
	},
	{
		dataset:    "idx_dividend",
		rules:      `{"description":"Dividend yield and changes validation","alert_level":"warning"}`,
		recipients: []string{"dividend-team@supertypeai.com", "income-alerts@supertypeai.com"},
	},
	{
		dataset:    "idx_all_time_price",
		rules:      `{"description":"All-time and periodic price data consistency","alert_level":"critical"}`,
		recipients: []string{"data-quality@supertypeai.com", "technical-team@supertypeai.com"},
	},
	{
		dataset:    "idx_filings",
		rules:      `{"description":"Insider filing prices and duplicate transactions","alert_level":"warning"}`,
		recipients: []string{"data-quality@supertypeai.com"},
	},
	{
		dataset:    "idx_stock_split",
		rules:      `{"description":"Stock split proximity","alert_level":"warning"}`,
		recipients: []string{"data-quality@supertypeai.com"},
	},
}

var coverageConfigs = []seedConfig{
	{
		dataset:    "idx_daily_coverage",
		rules:      `{"description":"Daily coverage against the active roster","alert_level":"critical"}`,
		recipients: []string{"market-alerts@supertypeai.com"},
	},
	{
		dataset:    "idx_company_profile",
		rules:      `{"description":"Classification hierarchy and shareholder consistency","alert_level":"warning"}`,
		recipients: []string{"data-quality@supertypeai.com"},
	},
}

func seedDefaultValidationConfigs(tx *gorm.DB) error {
	return insertConfigs(tx, defaultConfigs)
}

func seedCoverageAndProfileConfigs(tx *gorm.DB) error {
	return insertConfigs(tx, coverageConfigs)
}

// insertConfigs never overwrites rows an operator already created.
func insertConfigs(tx *gorm.DB, seeds []seedConfig) error {
	for _, s := range seeds {
		cfg := &model.ValidationConfig{
			DatasetName:     s.dataset,
			RuleParameters:  s.rules,
			CheckKinds:      "[]",
			ErrorThreshold:  5,
			EmailRecipients: model.EncodeStrings(s.recipients),
			Enabled:         true,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_name"}},
			DoNothing: true,
		}).Create(cfg).Error; err != nil {
			return err
		}
	}
	return nil
}
