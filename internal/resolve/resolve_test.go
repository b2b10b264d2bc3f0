// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/bookfetch/internal/fetch"
	"github.com/pdiddy/bookfetch/pkg/types"
)

const (
	md5A = "0123456789abcdef0123456789abcdef"
	md5B = "fedcba9876543210fedcba9876543210"
)

func testClient(transport *httpmock.MockTransport) *fetch.Client {
	return fetch.NewClient(types.HTTPConfig{
		ConnectTimeout: 5 * time.Second,
		TotalTimeout:   5 * time.Second,
		UserAgent:      "bookfetch-test/0.1",
	}).WithTransport(transport)
}

func testCatalogConfig() types.CatalogConfig {
	return types.CatalogConfig{
		LibgenMirrors: []string{"https://lg-a.test", "https://lg-b.test"},
		AnnasMirrors:  []string{"https://aa.test"},
		DeliveryEndpoints: []string{
			"https://gw1.test/main/%s",
			"https://gw2.test/get.php?md5=%s",
		},
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

const libgenResultsPage = `<html><body><table class="c">
<tr><td>ID</td><td>Author</td><td>Title</td></tr>
<tr><td>101</td><td>George Orwell</td><td><a href="book/index.php?md5=` + md5A + `">1984</a></td>
<td>Secker</td><td>-</td><td>en</td><td>1949</td><td>1 MB</td><td>epub</td>
<td><a href="http://landing.test/main/` + md5A + `">[1]</a></td></tr>
</table></body></html>`

const emptyResultsPage = `<html><body><table class="c">
<tr><td>ID</td><td>Author</td><td>Title</td></tr>
</table><p>Nothing found</p></body></html>`

func TestLibGenSearch_Identifier(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://lg-a\.test/search\.php`, htmlResponder(libgenResultsPage))

	lg := NewLibGen(testClient(transport), testCatalogConfig())
	res, err := lg.Search(context.Background(), "https://lg-a.test", "1984 George Orwell")
	require.NoError(t, err)

	assert.Equal(t, Identifier, res.Kind)
	assert.Equal(t, md5A, res.Record.Identifier)
	assert.Equal(t, "https://lg-a.test", res.Record.Mirror)
	assert.Equal(t, "https://lg-a.test/book/index.php?md5="+md5A, res.Record.PageURL)
	assert.Equal(t, "1984", res.Record.Title)
	assert.Equal(t, "epub", res.Record.Extension)
}

func TestLibGenSearch_NoResults(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://lg-a\.test/search\.php`, htmlResponder(emptyResultsPage))

	lg := NewLibGen(testClient(transport), testCatalogConfig())
	res, err := lg.Search(context.Background(), "https://lg-a.test", "no such book")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Kind)
}

func TestLibGenRecord_GetLinkWins(t *testing.T) {
	recordPage := `<html><body>
		<h2><a href="https://files.test/book.epub">GET</a></h2>
		<a href="https://cloudflare.test/x">Cloudflare</a>
	</body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://lg-a.test/book/index.php?md5="+md5A, htmlResponder(recordPage))

	lg := NewLibGen(testClient(transport), testCatalogConfig())
	rec := types.CatalogRecord{Identifier: md5A, Mirror: "https://lg-a.test", PageURL: "https://lg-a.test/book/index.php?md5=" + md5A}

	res, err := lg.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DirectURL, res.Kind)
	assert.Equal(t, "https://files.test/book.epub", res.URL)
}

func TestLibGenRecord_FallsBackToDelivery(t *testing.T) {
	recordPage := `<html><body><p>mirrors are down</p></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://lg-a.test/book/index.php?md5="+md5A, htmlResponder(recordPage))

	lg := NewLibGen(testClient(transport), testCatalogConfig())
	rec := types.CatalogRecord{Identifier: md5A, Mirror: "https://lg-a.test", PageURL: "https://lg-a.test/book/index.php?md5=" + md5A}

	res, err := lg.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, Delivery, res.Kind)
	assert.Equal(t, []string{
		"https://gw1.test/main/" + md5A,
		"https://gw2.test/get.php?md5=" + md5A,
	}, res.Candidates)
}

func TestAnnasSearchAndRecord_NestedLanding(t *testing.T) {
	searchPage := `<html><body>
		<a href="/md5/` + md5B + `">Dune - Frank Herbert, 1965, EPUB, 1.2MB</a>
	</body></html>`
	recordPage := `<html><body>
		<a href="https://libgen.test/main/` + md5B + `">Slow download</a>
	</body></html>`
	landingPage := `<html><body><h2><a href="https://files.test/dune.epub">GET</a></h2></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://aa\.test/search`, htmlResponder(searchPage))
	transport.RegisterResponder("GET", "https://aa.test/md5/"+md5B, htmlResponder(recordPage))
	transport.RegisterResponder("GET", "https://libgen.test/main/"+md5B, htmlResponder(landingPage))

	aa := NewAnnas(testClient(transport), testCatalogConfig())

	res, err := aa.Search(context.Background(), "https://aa.test", "Dune Frank Herbert")
	require.NoError(t, err)
	require.Equal(t, Identifier, res.Kind)
	assert.Equal(t, md5B, res.Record.Identifier)
	assert.Equal(t, "epub", res.Record.Extension)

	res, err = aa.Record(context.Background(), res.Record)
	require.NoError(t, err)
	assert.Equal(t, DirectURL, res.Kind)
	assert.Equal(t, "https://files.test/dune.epub", res.URL)
}

func TestAnnasRecord_DirectSlowLink(t *testing.T) {
	recordPage := `<html><body>
		<a href="https://partner.test/d/` + md5B + `">Slow download</a>
	</body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://aa.test/md5/"+md5B, htmlResponder(recordPage))

	aa := NewAnnas(testClient(transport), testCatalogConfig())
	rec := types.CatalogRecord{Identifier: md5B, Mirror: "https://aa.test", PageURL: "https://aa.test/md5/" + md5B}

	res, err := aa.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, DirectURL, res.Kind)
	assert.Equal(t, "https://partner.test/d/"+md5B, res.URL)
}

func TestChain_MirrorRotation(t *testing.T) {
	// Mirror A has nothing; mirror B resolves. The chain must finish with
	// B and never request a record page from A.
	recordPage := `<html><body><h2><a href="https://files.test/1984.epub">GET</a></h2></body></html>`

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://lg-a\.test/search\.php`, htmlResponder(emptyResultsPage))
	transport.RegisterResponder("GET", `=~^https://lg-b\.test/search\.php`,
		htmlResponder(`<html><body><table><tr><td>1</td><td>a</td><td><a href="book/index.php?md5=`+md5A+`">1984</a></td></tr></table></body></html>`))
	transport.RegisterResponder("GET", "https://lg-b.test/book/index.php?md5="+md5A, htmlResponder(recordPage))

	var narration bytes.Buffer
	lg := NewLibGen(testClient(transport), testCatalogConfig())
	chain := NewChain(&narration, lg)

	res, err := chain.Resolve(context.Background(), "1984")
	require.NoError(t, err)
	assert.Equal(t, DirectURL, res.Kind)
	assert.Equal(t, "https://files.test/1984.epub", res.URL)

	info := transport.GetCallCountInfo()
	for key, count := range info {
		if count > 0 {
			assert.NotContains(t, key, "lg-a.test/book", "record hop must not run against the failed mirror")
		}
	}
	assert.Contains(t, narration.String(), "lg-a.test: no usable result")
}

func TestChain_TransportErrorAdvancesMirror(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~^https://lg-a\.test/search\.php`,
		httpmock.NewStringResponder(503, "unavailable"))
	transport.RegisterResponder("GET", `=~^https://lg-b\.test/search\.php`,
		htmlResponder(`<html><body><a href="book/index.php?md5=`+md5A+`">x</a></body></html>`))
	transport.RegisterResponder("GET", "https://lg-b.test/book/index.php?md5="+md5A,
		htmlResponder(`<html><body><h2><a href="https://files.test/x.pdf">GET</a></h2></body></html>`))

	lg := NewLibGen(testClient(transport), testCatalogConfig())
	chain := NewChain(nil, lg)

	res, err := chain.Resolve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, DirectURL, res.Kind)
}

func TestChain_ExhaustionIsNotFound(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~.*`, htmlResponder(emptyResultsPage))

	cfg := testCatalogConfig()
	client := testClient(transport)
	chain := NewChain(nil, NewLibGen(client, cfg), NewAnnas(client, cfg))

	res, err := chain.Resolve(context.Background(), "ghost book")
	require.NoError(t, err)
	assert.Equal(t, NotFound, res.Kind)

	// Every mirror of both catalogs was consulted before giving up.
	assert.GreaterOrEqual(t, transport.GetTotalCallCount(), 3)
}

func TestChain_ContextCancellation(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", `=~.*`, htmlResponder(emptyResultsPage))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(nil, NewLibGen(testClient(transport), testCatalogConfig()))
	_, err := chain.Resolve(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeliveryCandidates(t *testing.T) {
	got := DeliveryCandidates([]string{
		"https://gw1.test/main/%s",
		"https://static.test/no-placeholder",
		"https://gw2.test/get.php?md5=%s",
	}, md5A)

	assert.Equal(t, []string{
		"https://gw1.test/main/" + md5A,
		"https://gw2.test/get.php?md5=" + md5A,
	}, got)
}
