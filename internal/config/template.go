package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultTemplate шаблон конфігурації, вбудований у бінарник
//
//go:embed templates/bizsite-api.hcl.tmpl
var DefaultTemplate string

// varTagRegex знаходить теги {{var "name" default_value required}}
var varTagRegex = regexp.MustCompile(`\{\{var\s+"([^"]+)"\s+("[^"]*"|[^\s}]+)\s+(true|false)\s*\}\}`)

// generateConfigWithVars генерує конфігурацію з шаблону з використанням змінних.
// Порожній templatePath означає DefaultTemplate.
func generateConfigWithVars(templatePath, outputPath string, vars map[string]interface{}) error {
	content := DefaultTemplate
	if templatePath != "" {
		raw, err := os.ReadFile(templatePath)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		content = string(raw)
	}

	rendered, err := RenderTemplate(content, vars)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(rendered), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// RenderTemplate підставляє змінні у теги {{var}}.
// Обов'язкова змінна без значення і без дефолту повертає помилку зі списком таких змінних.
func RenderTemplate(content string, vars map[string]interface{}) (string, error) {
	missing := map[string]struct{}{}

	rendered := varTagRegex.ReplaceAllStringFunc(content, func(match string) string {
		matches := varTagRegex.FindStringSubmatch(match)
		varName, defaultValue, required := matches[1], matches[2], matches[3] == "true"

		if value, exists := vars[varName]; exists {
			return formatValue(value)
		}

		if required && (defaultValue == "" || defaultValue == `""`) {
			missing[varName] = struct{}{}
			return match
		}

		return formatValue(parseDefaultValue(defaultValue))
	})

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("required template variables are not set: %s", strings.Join(names, ", "))
	}
	if strings.Contains(rendered, "{{") {
		return "", fmt.Errorf("template contains malformed {{var}} tags")
	}
	return rendered, nil
}

// formatValue форматує значення для HCL
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		// Якщо це список через кому, обробляємо як елементи масиву
		if strings.Contains(v, ",") {
			parts := strings.Split(v, ",")
			quoted := make([]string, 0, len(parts))
			for _, part := range parts {
				quoted = append(quoted, strconv.Quote(strings.TrimSpace(part)))
			}
			return strings.Join(quoted, ",\n      ")
		}
		return strconv.Quote(v)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strconv.Quote(fmt.Sprint(v))
	}
}

func toFloat(v interface{}) float64 {
	if f, ok := v.(float32); ok {
		return float64(f)
	}
	return v.(float64)
}

// parseDefaultValue парсить дефолтне значення з шаблону
func parseDefaultValue(defaultValue string) interface{} {
	if strings.HasPrefix(defaultValue, `"`) && strings.HasSuffix(defaultValue, `"`) {
		return strings.Trim(defaultValue, `"`)
	}
	if intVal, err := strconv.Atoi(defaultValue); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(defaultValue, 64); err == nil {
		return floatVal
	}
	if boolVal, err := strconv.ParseBool(defaultValue); err == nil {
		return boolVal
	}
	return defaultValue
}
