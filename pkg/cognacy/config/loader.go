package config

import (
	"fmt"

	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
)

// Loader loads all input files of a run
type Loader struct {
	ConfigPath  string
	DatasetPath string
	ModelPath   string
}

// Components holds everything a run starts from
type Components struct {
	Config  *Config
	Dataset *dataset.Dataset
	Model   *model.Model // nil unless a model file was given
}

// Load reads all configured files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load configuration
	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	} else {
		comp.Config = Default()
	}

	// Load dataset
	if l.DatasetPath != "" {
		opts, err := comp.Config.DatasetOptions()
		if err != nil {
			return nil, err
		}
		ds, err := dataset.Open(l.DatasetPath, opts)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		comp.Dataset = ds
	}

	// Load a previously trained model
	if l.ModelPath != "" {
		m, err := model.ReadFile(l.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("load model: %w", err)
		}
		comp.Model = m
	}

	return comp, nil
}
