package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config необязательные отображения имён, применяемые при трансляции
type Config struct {
	// Attributes отображение имён атрибутов фильтра на колонки или пути в записи
	Attributes map[string]string `yaml:"attributes,omitempty"`
	// Functions отображение имён функций фильтра на SQL-функции
	Functions map[string]string `yaml:"functions,omitempty"`
}

// LoadConfig читает YAML-конфигурацию; пустой путь даёт пустую конфигурацию
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
