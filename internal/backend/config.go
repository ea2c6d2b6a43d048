package backend

import (
	"errors"
	"fmt"

	"costbook/internal/config"
	"costbook/internal/remote/sheets"
)

var ErrNilConfig = errors.New("app config is nil")

// FromAppConfig picks the backend settings out of the process config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, ErrNilConfig
	}
	cfg := Config{
		Type:                BackendType(appConfig.DataBackend),
		AMQPURL:             appConfig.AMQPURL,
		AMQPExchange:        appConfig.AMQPExchange,
		AMQPQueue:           appConfig.AMQPQueue,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		Credentials: sheets.Credentials{
			JSON: appConfig.GoogleServiceAccountJSON,
			File: appConfig.GoogleServiceAccountFile,
		},
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type: %s", c.Type))
	}
	if c.Type == SheetsBackend && c.GoogleSpreadsheetID == "" {
		errs = append(errs, errors.New("spreadsheet id is required for the sheets backend"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP is enabled"))
	}
	return errors.Join(errs...)
}
