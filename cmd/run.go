package main

import (
	"os"

	"github.com/Granipouss/mtg-collection-pipe/internal/convert"
	"github.com/Granipouss/mtg-collection-pipe/internal/kafka"
	"github.com/Granipouss/mtg-collection-pipe/internal/moxfield"
	"github.com/Granipouss/mtg-collection-pipe/internal/pipeline"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full import (default command)",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	deps := pipeline.Dependencies{
		Source:      dragonShieldClient(),
		SourceAuth:  dragonShieldAuth(),
		Destination: moxfield.NewClient(logger, httpClient(), cfg.Moxfield.APIURL),
		DestAuth:    moxfieldAuth(),
		Converter: convert.NewConverter(logger, newCache(), convert.Options{
			SkipInvalidRows: cfg.Convert.SkipInvalidRows,
		}),
		Reporter: pipeline.NewReporter(os.Stdout),
		Logger:   logger,
	}

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			RunsTopic:  cfg.Kafka.RunsTopic,
			CardsTopic: cfg.Kafka.CardsTopic,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if remaining := producer.Flush(30000); remaining > 0 {
				logger.Warnf("%d messages were not delivered", remaining)
			}
			producer.Close()
		}()
		deps.Publisher = producer
	}

	p := pipeline.New(pipeline.Config{
		Folder:   cfg.DragonShield.Folder,
		WorkDir:  cfg.Paths.WorkDir,
		XLSXPath: cfg.Report.XLSXPath,
	}, deps)

	_, err := p.Run(cmd.Context())
	return err
}
