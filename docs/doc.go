// Package docs provides generated OpenAPI documentation.
//
// textbookd API
//
//	@title			textbookd API
//	@version		1.0
//	@description	Textbook structure extraction API for managing books, page content and background jobs.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/lazyreader/textbookd
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/textbookd/serve.go -o ./swagger --parseDependency --parseInternal
