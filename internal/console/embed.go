package console

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed all:web
var embedFS embed.FS

// GetStaticFS は静的ファイルのファイルシステムを返す
func GetStaticFS() http.FileSystem {
	// web のサブディレクトリを取得
	staticFS, err := fs.Sub(embedFS, "web")
	if err != nil {
		log.Fatal().Err(err).Msg("埋め込み静的ファイルシステムの作成に失敗")
	}
	return http.FS(staticFS)
}

// getIndexHTML は index.html の内容を返す
func getIndexHTML() []byte {
	data, err := embedFS.ReadFile("web/index.html")
	if err != nil {
		log.Fatal().Err(err).Msg("埋め込みindex.htmlの読み込みに失敗")
	}
	return data
}
