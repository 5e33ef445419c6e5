package generation

import (
	"fmt"
	"strings"
)

const systemInstruction = `You are an expert web developer. Create a complete, working website project from the user's requirements.

Return ONLY a valid JSON object with exactly this structure:
{
  "name": "project-name-kebab-case",
  "description": "brief description of the project",
  "files": {
    "index.html": { "content": "complete HTML content", "type": "html" },
    "style.css": { "content": "complete CSS content", "type": "css" },
    "script.js": { "content": "complete JavaScript content", "type": "js" }
  }
}

Requirements:
1. Always include index.html as the main entry point.
2. Every file value is an object with a string "content" holding the full file text and a short "type" token.
3. Use semantic HTML5, responsive layouts and accessible markup.
4. Write complete, working code with no placeholders or TODO comments.
5. Do not add any text outside the JSON object.`

// BuildPrompt renders the user prompt for a request.
func BuildPrompt(r Request) string {
	var b strings.Builder
	b.WriteString("Project Requirements:\n")
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Project Type: %s\n", r.ProjectType)
	fmt.Fprintf(&b, "Framework: %s\n", r.Framework)
	fmt.Fprintf(&b, "Styling: %s\n", r.Styling)
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(r.Features, ", "))
	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String()
}

func SystemInstruction() string {
	return systemInstruction
}
