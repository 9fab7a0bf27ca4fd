// Command papdf-demo writes a small sample document exercising text,
// graphics, barcodes and TrueType embedding.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gcoppex/papdf/document"
	"golang.org/x/image/font/gofont/goregular"
)

func main() {
	out := flag.String("o", "demo.pdf", "output file")
	format := flag.String("format", "A4", "page format (A3, A4, A5, Letter, Legal)")
	flag.Parse()

	doc := document.New(document.Options{
		Format: *format,
		Title:  "papdf demo",
	})

	must(doc.AddTrueTypeFont("GoRegular", goregular.TTF))

	must(doc.AddText(20, 270, "Hello with the builtin Helvetica."))
	must(doc.SetFont("GoRegular"))
	must(doc.SetFontSize(14))
	must(doc.AddText(20, 260, "Hello with an embedded, subset TrueType font."))
	must(doc.AddPar(20, 250, "Paragraphs split on newlines.\nLike this one."))

	must(doc.SetDrawColor("#336699"))
	must(doc.SetLineThickness(0.5))
	must(doc.AddLine(20, 240, 120, 240))
	must(doc.AddRect(20, 200, 60, 30, false, true))

	must(doc.SetDrawColor("#000000"))
	must(doc.SetFont("Helvetica"))
	must(doc.AddEAN13(20, 150, "4006381333931", true))

	must(doc.AddPage())
	must(doc.SetFontSize(10))
	must(doc.AddText(20, 270, "Second page."))

	f, err := os.Create(*out)
	must(err)
	defer f.Close()
	if _, err := doc.WriteTo(f); err != nil {
		must(err)
	}
	fmt.Println("wrote", *out)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "papdf-demo:", err)
		os.Exit(1)
	}
}
