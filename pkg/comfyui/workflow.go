package comfyui

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed workflow_flux2.json
var defaultWorkflow []byte

// loadWorkflow returns the API-format workflow at path, or the bundled
// Flux2 text-to-image graph when path is empty.
func loadWorkflow(path string) ([]byte, error) {
	if path == "" {
		return defaultWorkflow, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("workflow %s is not valid JSON", path)
	}
	return data, nil
}

// buildPrompt fills the positive prompt into promptNode and overwrites every
// seed input so repeated prompts do not hit ComfyUI's cache.
func buildPrompt(workflow []byte, promptNode, text string, seed int64) (map[string]map[string]any, error) {
	var graph map[string]map[string]any
	if err := json.Unmarshal(workflow, &graph); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}

	node, ok := graph[promptNode]
	if !ok {
		return nil, fmt.Errorf("workflow has no node %q", promptNode)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("workflow node %q has no inputs", promptNode)
	}
	inputs["text"] = text

	for _, n := range graph {
		in, ok := n["inputs"].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"noise_seed", "seed"} {
			if _, exists := in[key]; exists {
				in[key] = seed
			}
		}
	}
	return graph, nil
}
