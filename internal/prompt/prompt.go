// Package prompt renders the narration prompt handed to the vision-language
// model, grounding it with structured scene facts when available.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/lumenlabs/scenevoice/internal/vision"
	"gopkg.in/yaml.v3"
)

// DefaultScenePrompt is used when no template file is configured or the
// configured file cannot be loaded.
const DefaultScenePrompt = `You are acting as a visual aid for a blind person. The person is navigating their surroundings and cannot see, but you provide a complete understanding of what is happening around them.

1. Hazards first: begin by immediately mentioning any potential dangers or obstacles that could affect the person's movement or safety, such as stairs, curbs, vehicles, bicycles, moving objects, slippery surfaces, or crosswalks. Use clear, concise instructions like "watch out for stairs ahead".

2. Scene description: after mentioning hazards, describe the rest of the surroundings as if the person could perceive it naturally: key objects and people, their relative positions (left, center, right), approximate distances or sizes, and any other notable environmental details. Skip irrelevant details.

3. Format and style: keep the description short, actionable, and easy to understand, in natural conversational language. Never say "this is an image" or "the image shows"; narrate the scene as if it is happening in real life.`

const sceneTemplateName = "image_description"

type promptFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// Context is the data handed to the scene template.
type Context struct {
	Labels  string
	Objects string
	OCR     string
}

// Library holds parsed prompt templates.
type Library struct {
	scene *template.Template
}

// Load parses a prompts YAML file. A missing or malformed file is an error;
// callers that want the builtin fallback use LoadOrDefault.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	var parsed promptFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse prompt file: %w", err)
	}
	body, ok := parsed.Prompts[sceneTemplateName]
	if !ok || strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("prompt file missing %q template", sceneTemplateName)
	}
	tmpl, err := template.New(sceneTemplateName).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse %q template: %w", sceneTemplateName, err)
	}
	return &Library{scene: tmpl}, nil
}

// LoadOrDefault loads path when it is non-empty and readable, otherwise
// returns a library that renders the builtin prompt. The load error, if any,
// is returned alongside so the caller can log it.
func LoadOrDefault(path string) (*Library, error) {
	if path == "" {
		return &Library{}, nil
	}
	lib, err := Load(path)
	if err != nil {
		return &Library{}, err
	}
	return lib, nil
}

// ScenePrompt renders the narration prompt for the given annotation. Scene
// facts are folded in only when a template is loaded; the builtin prompt
// relies on the model seeing the image alone.
func (l *Library) ScenePrompt(ann vision.Annotation) string {
	if l == nil || l.scene == nil {
		return DefaultScenePrompt
	}
	var sb strings.Builder
	if err := l.scene.Execute(&sb, sceneContext(ann)); err != nil {
		return DefaultScenePrompt
	}
	return strings.TrimSpace(sb.String())
}

func sceneContext(ann vision.Annotation) Context {
	labels := make([]string, 0, len(ann.Labels))
	for _, l := range ann.Labels {
		labels = append(labels, fmt.Sprintf("%s (%.2f)", l.Description, l.Score))
	}
	objects := make([]string, 0, len(ann.Objects))
	for _, o := range ann.Objects {
		objects = append(objects, fmt.Sprintf("%s (%.2f)", o.Name, o.Score))
	}
	ctx := Context{
		Labels:  strings.Join(labels, ", "),
		Objects: strings.Join(objects, ", "),
		OCR:     strings.TrimSpace(ann.OCRText),
	}
	if ctx.Labels == "" {
		ctx.Labels = "none"
	}
	if ctx.Objects == "" {
		ctx.Objects = "none"
	}
	if ctx.OCR == "" {
		ctx.OCR = "none"
	}
	return ctx
}
