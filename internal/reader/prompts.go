package reader

// Prompts and response schemas for the extraction LLM calls. The schemas use
// the json_schema wrapper format shared by the provider clients.

const bookInfoPrompt = "Extract the book information from the following text: %s"

const tocPrompt = "Extract the table of contents from the following text, " +
	"treat bibliography and indexes as two separate chapters: %s"

const bookInfoSchema = `{
  "name": "book_basic_info",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "book_name": {"type": "string"},
      "book_author": {"type": "string"},
      "book_keywords": {"type": "string"}
    },
    "required": ["book_name", "book_author", "book_keywords"],
    "additionalProperties": false
  }
}`

const tocSchema = `{
  "name": "table_of_contents",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "chapters": {
        "type": "array",
        "items": {
          "type": "object",
          "properties": {
            "index_string": {"type": "string"},
            "title": {"type": "string"},
            "page_number": {"type": "integer"},
            "sections": {
              "type": "array",
              "items": {
                "type": "object",
                "properties": {
                  "index_string": {"type": "string"},
                  "title": {"type": "string"},
                  "page_number": {"type": "integer"}
                },
                "required": ["index_string", "title", "page_number"],
                "additionalProperties": false
              }
            }
          },
          "required": ["index_string", "title", "page_number", "sections"],
          "additionalProperties": false
        }
      }
    },
    "required": ["chapters"],
    "additionalProperties": false
  }
}`
