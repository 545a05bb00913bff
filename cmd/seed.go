package main

import (
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/medhirweb/salespipe/internal/model"
	"github.com/medhirweb/salespipe/internal/store"
)

var seedFile string

type seedStage struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Color    string `yaml:"color"`
	FormType string `yaml:"form_type"`
	Position int    `yaml:"position"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed pipeline stages from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(seedFile)
		if err != nil {
			return eris.Wrap(err, "read seed file")
		}

		var seeds struct {
			Stages []seedStage `yaml:"stages"`
		}
		if err := yaml.Unmarshal(data, &seeds); err != nil {
			return eris.Wrap(err, "parse seed file")
		}
		if len(seeds.Stages) == 0 {
			return eris.New("seed file contains no stages")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		created, skipped := 0, 0
		for _, s := range seeds.Stages {
			formType, err := model.ParseFormType(s.FormType)
			if err != nil {
				return eris.Wrapf(err, "stage %q", s.Key)
			}
			_, err = st.CreateStage(ctx, model.Stage{
				Key:      s.Key,
				Name:     s.Name,
				Color:    s.Color,
				FormType: formType,
				Position: s.Position,
			})
			if errors.Is(err, store.ErrDuplicateKey) {
				skipped++
				continue
			}
			if err != nil {
				return err
			}
			created++
		}

		zap.L().Info("seed complete",
			zap.Int("created", created),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "stages.yaml", "path to stage seed YAML")
	rootCmd.AddCommand(seedCmd)
}
