package generated

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen --package=generated -generate=types,gin -o api.gen.go openapi.yaml

//go:embed openapi.yaml
var specYAML []byte

// SpecYAML は埋め込まれたOpenAPI定義を返す
func SpecYAML() []byte {
	return specYAML
}

// GetSwagger は埋め込まれたOpenAPI定義を読み込む
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("OpenAPI定義の読み込みに失敗: %w", err)
	}
	return doc, nil
}
