package service

import (
	"testing"

	"github.com/captolab/gpuhub/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOutputPlainText(t *testing.T) {
	out, kind := ClassifyOutput(&RunResult{Stdout: "hello\n"})
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, model.OutputText, kind)
}

func TestClassifyOutputStderrFallback(t *testing.T) {
	out, kind := ClassifyOutput(&RunResult{Stderr: "Traceback: boom"})
	assert.Equal(t, "Traceback: boom", out)
	assert.Equal(t, model.OutputText, kind)
}

func TestClassifyOutputDataFrameMarkers(t *testing.T) {
	for _, stdout := range []string{
		"<class 'pandas.core.frame.DataFrame'>\n   a  b\n0  1  2",
		"shape: (3, 2)\n",
	} {
		out, kind := ClassifyOutput(&RunResult{Stdout: stdout})
		assert.Equal(t, stdout, out)
		assert.Equal(t, model.OutputDataFrame, kind)
	}
}

func TestClassifyOutputArtifactsWinOverText(t *testing.T) {
	res := &RunResult{
		Stdout: "shape: (3, 2)",
		Artifacts: []Artifact{
			{Name: "figure_1.png", Data: []byte{0x89, 0x50}},
			{Name: "plot_2.svg", Data: []byte("<svg/>")},
		},
	}
	out, kind := ClassifyOutput(res)
	assert.Equal(t, model.OutputHTML, kind)
	assert.Contains(t, out, "data:image/png;base64,")
	assert.Contains(t, out, "data:image/svg+xml;base64,")
	assert.Contains(t, out, `alt="Plot 1"`)
	assert.Contains(t, out, `alt="Plot 2"`)
}
