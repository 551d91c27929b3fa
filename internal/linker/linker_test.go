package linker

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/drewdunne/ghlink/internal/metrics"
	"github.com/drewdunne/ghlink/internal/reference"
	"github.com/drewdunne/ghlink/internal/repository"
)

const sha = "a5c3785ed8d6a35868bc169f07e40e889087fd2e"

func newLinker(opts ...Option) *Linker {
	return New(reference.NewMatcher(repository.ID{Owner: "wooorm", Project: "mdast"}), opts...)
}

func renderHTML(t *testing.T, doc *Document) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, doc.Markdown.Renderer().Render(&buf, doc.Source, doc.Root))
	return buf.String()
}

func parse(source []byte) ast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(source))
}

func TestProcess_Fixture(t *testing.T) {
	source := strings.Join([]string{
		"SHA: " + sha,
		"",
		"User@SHA: wooorm@" + sha,
		"",
		"#Num: #26",
		"",
		"GH-Num: GH-26",
		"",
		"User#Num: wooorm#26",
		"",
	}, "\n")

	doc := newLinker().Process([]byte(source))

	want := strings.Join([]string{
		`<p>SHA: <a href="https://github.com/wooorm/mdast/commit/` + sha + `">a5c3785</a></p>`,
		`<p>User@SHA: <a href="https://github.com/wooorm/mdast/commit/` + sha + `">wooorm@a5c3785</a></p>`,
		`<p>#Num: <a href="https://github.com/wooorm/mdast/issues/26">#26</a></p>`,
		`<p>GH-Num: <a href="https://github.com/wooorm/mdast/issues/26">GH-26</a></p>`,
		`<p>User#Num: <a href="https://github.com/wooorm/mdast/issues/26">wooorm#26</a></p>`,
		"",
	}, "\n")
	assert.Equal(t, want, renderHTML(t, doc))

	require.Len(t, doc.Edits, 5)
	for i, e := range doc.Edits {
		assert.Equal(t, e.Match.Label, source[e.Start:e.Start+len(e.Match.Label)], "edit %d", i)
		if i > 0 {
			assert.Less(t, doc.Edits[i-1].Stop, e.Start)
		}
	}
	assert.Equal(t, sha, source[doc.Edits[0].Start:doc.Edits[0].Stop])
}

func TestProcess_PieceStructure(t *testing.T) {
	doc := newLinker().Process([]byte("Fixes #1 and #2."))

	para := doc.Root.FirstChild()
	require.NotNil(t, para)

	var kinds []ast.NodeKind
	for c := para.FirstChild(); c != nil; c = c.NextSibling() {
		kinds = append(kinds, c.Kind())
	}
	assert.Equal(t, []ast.NodeKind{ast.KindText, ast.KindLink, ast.KindText, ast.KindLink, ast.KindText}, kinds)

	link := para.FirstChild().NextSibling().(*ast.Link)
	assert.Equal(t, "https://github.com/wooorm/mdast/issues/1", string(link.Destination))
	require.Equal(t, 1, link.ChildCount())
	label, ok := link.FirstChild().(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "#1", string(label.Segment.Value(doc.Source)))
}

func TestRewrite_NoReferencesLeavesNodeUntouched(t *testing.T) {
	source := []byte("Nothing to link here, not even 123456.")
	root := parse(source)
	before := root.FirstChild().FirstChild().(*ast.Text)
	seg := before.Segment

	edits := newLinker().Rewrite(root, source)

	assert.Empty(t, edits)
	after := root.FirstChild().FirstChild()
	assert.Same(t, before, after)
	assert.Equal(t, seg, after.(*ast.Text).Segment)
	assert.Nil(t, after.NextSibling())
}

func TestRewrite_PreservesOtherNodes(t *testing.T) {
	source := []byte("*em* then #1 then **strong**")
	root := parse(source)
	para := root.FirstChild()
	em := para.FirstChild()
	strong := para.LastChild()
	require.Equal(t, ast.KindEmphasis, em.Kind())
	require.Equal(t, ast.KindEmphasis, strong.Kind())

	newLinker().Rewrite(root, source)

	assert.Same(t, para, root.FirstChild())
	assert.Same(t, em, para.FirstChild())
	assert.Same(t, strong, para.LastChild())
}

func TestRewrite_StringNodes(t *testing.T) {
	doc := ast.NewDocument()
	para := ast.NewParagraph()
	doc.AppendChild(doc, para)
	para.AppendChild(para, ast.NewString([]byte("fixes #26 now")))

	edits := newLinker().Rewrite(doc, nil)
	assert.Empty(t, edits, "positionless nodes record no edits")

	require.Equal(t, 3, para.ChildCount())
	first := para.FirstChild().(*ast.String)
	assert.Equal(t, "fixes ", string(first.Value))

	link := first.NextSibling().(*ast.Link)
	assert.Equal(t, "https://github.com/wooorm/mdast/issues/26", string(link.Destination))
	assert.Equal(t, "#26", string(link.FirstChild().(*ast.String).Value))

	assert.Equal(t, " now", string(para.LastChild().(*ast.String).Value))
}

func TestRewrite_CodeStringSkipped(t *testing.T) {
	doc := ast.NewDocument()
	para := ast.NewParagraph()
	doc.AppendChild(doc, para)
	code := ast.NewString([]byte("#26"))
	code.SetCode(true)
	para.AppendChild(para, code)

	newLinker().Rewrite(doc, nil)
	assert.Same(t, code, para.FirstChild())

	newLinker(WithPolicy(Policy{})).Rewrite(doc, nil)
	assert.Equal(t, ast.KindLink, para.FirstChild().Kind())
}

func TestProcess_SoftLineBreak(t *testing.T) {
	doc := newLinker().Process([]byte("see #1\nand #2\n"))

	assert.Equal(t,
		"<p>see <a href=\"https://github.com/wooorm/mdast/issues/1\">#1</a>\n"+
			"and <a href=\"https://github.com/wooorm/mdast/issues/2\">#2</a></p>\n",
		renderHTML(t, doc))
}

func TestProcess_HardLineBreak(t *testing.T) {
	doc := newLinker().Process([]byte("see #1  \nnext\n"))

	assert.Equal(t,
		"<p>see <a href=\"https://github.com/wooorm/mdast/issues/1\">#1</a><br>\nnext</p>\n",
		renderHTML(t, doc))
}

func TestProcess_LineBreakAfterTrailingText(t *testing.T) {
	doc := newLinker().Process([]byte("#1 is done\nok\n"))

	assert.Equal(t,
		"<p><a href=\"https://github.com/wooorm/mdast/issues/1\">#1</a> is done\nok</p>\n",
		renderHTML(t, doc))
}

func TestProcess_DefaultPolicySkipsCodeAndLinks(t *testing.T) {
	doc := newLinker().Process([]byte("`#26` and [see #27](https://example.com) and ![#28](x.png)"))

	assert.Empty(t, doc.Edits)
	html := renderHTML(t, doc)
	assert.NotContains(t, html, "/issues/")
	assert.Contains(t, html, "<code>#26</code>")
}

func TestProcess_LinkingInsideLinks(t *testing.T) {
	doc := newLinker(WithPolicy(Policy{SkipCode: true})).Process([]byte("[see #27](https://example.com)"))

	require.Len(t, doc.Edits, 1)
	assert.Contains(t, renderHTML(t, doc),
		`<a href="https://example.com">see <a href="https://github.com/wooorm/mdast/issues/27">#27</a></a>`)
}

func TestProcess_WholeCodeSpanWrapped(t *testing.T) {
	source := "Fixed in `" + sha + "` and `see #3`."
	doc := newLinker(WithPolicy(Policy{SkipLinks: true})).Process([]byte(source))

	require.Len(t, doc.Edits, 1)
	e := doc.Edits[0]
	assert.True(t, e.Wrap)
	assert.Equal(t, "`"+sha+"`", source[e.Start:e.Stop])

	html := renderHTML(t, doc)
	assert.Contains(t, html,
		`<a href="https://github.com/wooorm/mdast/commit/`+sha+`"><code>`+sha+`</code></a>`)
	assert.Contains(t, html, "<code>see #3</code>")
}

func TestProcess_EscapedReferences(t *testing.T) {
	doc := newLinker().Process([]byte(`not \#26 nor &#26; but #27`))

	require.Len(t, doc.Edits, 1)
	assert.Equal(t, "27", doc.Edits[0].Match.Ref)
}

func TestProcess_IntrawordDelimiters(t *testing.T) {
	// goldmark ends text nodes at '_' even when no emphasis forms.
	source := []byte("id x_" + sha + " here\n\nsnake_case_GH-26 and my_var#3\n")
	doc := newLinker().Process(source)

	require.Len(t, doc.Edits, 1)
	assert.Equal(t, reference.KindIssue, doc.Edits[0].Match.Kind)
	assert.Equal(t, "wooorm", doc.Edits[0].Match.Owner)
	assert.Equal(t, "#3", string(source[doc.Edits[0].Start:doc.Edits[0].Stop]))

	html := renderHTML(t, doc)
	assert.Contains(t, html, "<p>id x_"+sha+" here</p>")
	assert.Contains(t, html, `snake_case_GH-26 and my_var<a href="https://github.com/wooorm/mdast/issues/3">#3</a>`)
}

func TestProcess_EmphasisDelimitersAreBoundaries(t *testing.T) {
	doc := newLinker().Process([]byte("_#1_ and __GH-2__ and _" + sha + "_\n"))

	require.Len(t, doc.Edits, 3)
	assert.Equal(t, "1", doc.Edits[0].Match.Ref)
	assert.Equal(t, "2", doc.Edits[1].Match.Ref)
	assert.Equal(t, sha, doc.Edits[2].Match.Ref)
	assert.Contains(t, renderHTML(t, doc), `<em><a href="https://github.com/wooorm/mdast/issues/1">#1</a></em>`)
}

func TestProcess_EscapeBeforeSplitText(t *testing.T) {
	doc := newLinker().Process([]byte("a_\\#4 b_#5"))

	require.Len(t, doc.Edits, 1)
	assert.Equal(t, "5", doc.Edits[0].Match.Ref)
}

func TestProcess_Tables(t *testing.T) {
	doc := newLinker().Process([]byte("| ref |\n| --- |\n| #5 |\n"))

	assert.Contains(t, renderHTML(t, doc), `<td><a href="https://github.com/wooorm/mdast/issues/5">#5</a></td>`)
}

func TestProcess_CountsMetrics(t *testing.T) {
	metrics.Reset()

	newLinker().Process([]byte("#1 and " + sha + " and wooorm#2"))

	m := metrics.Get()
	assert.Equal(t, uint64(1), m.DocumentsProcessed)
	assert.Equal(t, uint64(1), m.CommitLinks)
	assert.Equal(t, uint64(2), m.IssueLinks)
}

func TestProcess_ConcurrentUse(t *testing.T) {
	l := newLinker()
	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			doc := l.Process([]byte("see #1"))
			var buf bytes.Buffer
			_ = doc.Markdown.Renderer().Render(&buf, doc.Source, doc.Root)
			done <- buf.String()
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Contains(t, <-done, "/issues/1")
	}
}

func TestCodeSpanBounds(t *testing.T) {
	source := []byte("a `` #1 `` b")
	start, stop := codeSpanBounds(source, text.NewSegment(5, 7))
	assert.Equal(t, "`` #1 ``", string(source[start:stop]))

	source = []byte("`#26`")
	start, stop = codeSpanBounds(source, text.NewSegment(1, 4))
	assert.Equal(t, 0, start)
	assert.Equal(t, 5, stop)
}
