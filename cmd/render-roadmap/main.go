package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joelkehle/triage-console/internal/console"
	"github.com/joelkehle/triage-console/internal/triage"
)

func main() {
	inputPath := flag.String("input", "", "Path to a saved /api/roadmap response JSON")
	disease := flag.String("disease", "", "Condition the roadmap was requested for")
	name := flag.String("name", "", "Patient name for the summary line")
	age := flag.String("age", "", "Patient age for the summary line")
	outputPath := flag.String("output", "", "Path to write markdown (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "Optional path to write a PDF rendering (requires chromium)")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}
	if *disease == "" {
		log.Fatal("missing required -disease")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var resp triage.RoadmapResponse
	if err := json.Unmarshal(in, &resp); err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}
	if resp.Roadmap == nil {
		log.Fatal("input has no roadmap object")
	}

	view := triage.RenderRoadmap(*disease, *resp.Roadmap, triage.PatientSummary{Name: *name, Age: *age})
	markdown := console.RoadmapMarkdown(view)
	if err := writeMarkdown(*outputPath, markdown); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		pdf, err := console.NewChromiumPDFRenderer("").Render(context.Background(), "Care Roadmap: "+*disease, markdown)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
