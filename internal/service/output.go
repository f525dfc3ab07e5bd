package service

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/captolab/gpuhub/internal/model"
)

// ClassifyOutput post-processes a run's raw result into the API-facing
// output string and kind. Image artifacts win over text: they are inlined
// as base64 data URIs in emission order and the kind becomes rendered
// markup. Otherwise structural markers suggesting tabular data mark the
// output as a dataframe dump, else it stays plain text.
func ClassifyOutput(res *RunResult) (output, kind string) {
	if len(res.Artifacts) > 0 {
		imgs := make([]string, 0, len(res.Artifacts))
		for i, art := range res.Artifacts {
			uri := fmt.Sprintf("data:%s;base64,%s",
				artifactMime(art.Name), base64.StdEncoding.EncodeToString(art.Data))
			imgs = append(imgs, fmt.Sprintf(
				`<img src="%s" alt="Plot %d" style="max-width: 100%%; height: auto;">`, uri, i+1))
		}
		return strings.Join(imgs, "\n"), model.OutputHTML
	}

	output = res.Stdout
	if output == "" {
		output = res.Stderr
	}
	if strings.Contains(output, "DataFrame") || strings.Contains(output, "shape:") {
		return output, model.OutputDataFrame
	}
	return output, model.OutputText
}
