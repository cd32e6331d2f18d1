package main

import (
	"encoding/json"
	"fmt"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/go-jupyter/jpyclient/response"
	"k8s.io/klog/v2"
)

// plotlyMIME is the MIME type a kernel uses to publish a Plotly figure as
// part of a display_data/execute_result bundle.
const plotlyMIME = "application/vnd.plotly.v1+json"

// describeMIMEBundle reports what is in a MIME bundle without rendering
// it (jpyclient is a terminal tool, not a notebook front end): plain text
// is printed as-is, and a Plotly figure is decoded through
// github.com/MetalBlueberry/go-plotly just far enough to report its
// trace count, the way a front end would before handing the figure to
// the browser.
func describeMIMEBundle(data response.MIMEMap) string {
	if raw, ok := data[plotlyMIME]; ok {
		return describePlotlyFigure(raw)
	}
	if text, ok := data["text/plain"].(string); ok {
		return text
	}
	mimes := make([]string, 0, len(data))
	for mime := range data {
		mimes = append(mimes, mime)
	}
	return fmt.Sprintf("(mime bundle: %v)", mimes)
}

func describePlotlyFigure(raw interface{}) string {
	encoded, err := json.Marshal(raw)
	if err != nil {
		klog.Warningf("jpyclient: re-marshaling plotly figure for decode: %v", err)
		return "(plotly figure, undecodable)"
	}
	var fig grob.Fig
	if err := json.Unmarshal(encoded, &fig); err != nil {
		klog.Warningf("jpyclient: decoding plotly figure: %v", err)
		return "(plotly figure, undecodable)"
	}
	return fmt.Sprintf("plotly figure with %d trace(s)", len(fig.Data))
}
