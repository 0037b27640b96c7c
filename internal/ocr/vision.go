package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

// visionBatchPageLimit is the synchronous files API cap: at most 5 pages per
// request (and 20MB per file). Larger documents are read in chunks.
const visionBatchPageLimit = 5

// VisionClient implements Client for Google Cloud Vision document text
// detection, reading PDF bytes directly without rasterization.
type VisionClient struct {
	client    *vision.ImageAnnotatorClient
	languages []string
}

// NewVisionClient creates a new Vision client. With no credentials file the
// client falls back to application default credentials.
func NewVisionClient(ctx context.Context, opts Options) (*VisionClient, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}

	return &VisionClient{
		client:    client,
		languages: opts.Languages,
	}, nil
}

// Extract runs document text detection over every page of the PDF.
func (c *VisionClient) Extract(ctx context.Context, req Request) (*Document, error) {
	start := time.Now()

	total := req.PageCount
	langs := make(map[string]bool)
	var pages []Page
	for first := 1; ; first += visionBatchPageLimit {
		var want []int32
		if total > 0 {
			if first > total {
				break
			}
			for p := first; p <= total && p < first+visionBatchPageLimit; p++ {
				want = append(want, int32(p))
			}
		}

		// With an unknown page count the first request omits Pages; the
		// response reports the document total for the remaining chunks.
		got, totalPages, err := c.annotateBatch(ctx, req, want, first, langs)
		if err != nil {
			return nil, err
		}
		pages = append(pages, got...)

		if total <= 0 {
			total = totalPages
		}
		if total <= 0 || first+visionBatchPageLimit > total {
			break
		}
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })

	return &Document{
		Text:        joinPageText(pages),
		Pages:       pages,
		Provider:    ProviderVision,
		Languages:   languageCodes(langs),
		ProcessedAt: time.Now().UTC(),
		Duration:    time.Since(start),
	}, nil
}

func (c *VisionClient) annotateBatch(ctx context.Context, req Request, want []int32, first int, langs map[string]bool) ([]Page, int, error) {
	fileReq := &visionpb.AnnotateFileRequest{
		InputConfig: &visionpb.InputConfig{
			Content:  req.PDF,
			MimeType: "application/pdf",
		},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
		Pages: want,
	}
	hints := req.Languages
	if len(hints) == 0 {
		hints = c.languages
	}
	if len(hints) > 0 {
		fileReq.ImageContext = &visionpb.ImageContext{LanguageHints: hints}
	}

	resp, err := c.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{fileReq},
	})
	if err != nil {
		return nil, 0, classify(err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, 0, &TransientError{Message: "empty batch response from Vision"}
	}

	fileResp := resp.GetResponses()[0]
	if st := fileResp.GetError(); st != nil {
		return nil, 0, classify(status.ErrorProto(st))
	}

	var pages []Page
	for i, imgResp := range fileResp.GetResponses() {
		if st := imgResp.GetError(); st != nil {
			return nil, 0, classify(status.ErrorProto(st))
		}
		number := int(imgResp.GetContext().GetPageNumber())
		if number <= 0 {
			if i < len(want) {
				number = int(want[i])
			} else {
				number = first + i
			}
		}
		pages = append(pages, pageFromAnnotation(number, imgResp.GetFullTextAnnotation(), langs))
	}

	return pages, int(fileResp.GetTotalPages()), nil
}

// pageFromAnnotation flattens Vision's block/paragraph/word/symbol hierarchy
// into the artifact shape, keeping confidences and pixel bounding boxes.
// Detected language codes are accumulated into langs.
func pageFromAnnotation(number int, ann *visionpb.TextAnnotation, langs map[string]bool) Page {
	page := Page{Number: number}
	if ann == nil {
		return page
	}
	page.Text = ann.GetText()

	for _, vp := range ann.GetPages() {
		page.Width = vp.GetWidth()
		page.Height = vp.GetHeight()
		page.Confidence = float64(vp.GetConfidence())

		for _, dl := range vp.GetProperty().GetDetectedLanguages() {
			if code := dl.GetLanguageCode(); code != "" && langs != nil {
				langs[code] = true
			}
		}

		for _, vb := range vp.GetBlocks() {
			block := Block{
				BlockType:   vb.GetBlockType().String(),
				Confidence:  float64(vb.GetConfidence()),
				BoundingBox: vertices(vb.GetBoundingBox()),
			}
			for _, vpar := range vb.GetParagraphs() {
				par := Paragraph{
					Confidence:  float64(vpar.GetConfidence()),
					BoundingBox: vertices(vpar.GetBoundingBox()),
				}
				for _, vw := range vpar.GetWords() {
					var sb strings.Builder
					for _, sym := range vw.GetSymbols() {
						sb.WriteString(sym.GetText())
					}
					par.Words = append(par.Words, Word{
						Text:        sb.String(),
						Confidence:  float64(vw.GetConfidence()),
						BoundingBox: vertices(vw.GetBoundingBox()),
					})
				}
				block.Paragraphs = append(block.Paragraphs, par)
			}
			page.Blocks = append(page.Blocks, block)
		}
	}

	return page
}

func vertices(poly *visionpb.BoundingPoly) []Vertex {
	if poly == nil {
		return nil
	}
	out := make([]Vertex, 0, len(poly.GetVertices()))
	for _, v := range poly.GetVertices() {
		out = append(out, Vertex{X: v.GetX(), Y: v.GetY()})
	}
	return out
}

func languageCodes(langs map[string]bool) []string {
	if len(langs) == 0 {
		return nil
	}
	out := make([]string, 0, len(langs))
	for code := range langs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Name returns the provider name.
func (c *VisionClient) Name() string {
	return ProviderVision
}

// Close releases the underlying API client.
func (c *VisionClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
