package playtomic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"
	"padelscout-backend/lib/htmlutil"
	"padelscout-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TenantClient resolves club metadata from the booking page itself
// without spinning up a browser: the page embeds its bootstrap state
// as json, which carries the tenant (club) name.
type TenantClient struct {
	http *resty.Client
}

func NewTenantClient() (*TenantClient, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", UserAgent)
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, tracer, instrumentOutput)

	return &TenantClient{http: client}, nil
}

var instrumentOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput enables http message dumping for clients
// created afterwards.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

type bootstrapState struct {
	Props struct {
		PageProps struct {
			Tenant struct {
				TenantName string `json:"tenant_name"`
				TenantUid  string `json:"tenant_uid"`
			} `json:"tenant"`
		} `json:"pageProps"`
	} `json:"props"`
}

// Tenant is a club as the booking page describes itself.
type Tenant struct {
	Name string
	Uid  string
}

func tenantFromDocument(doc *goquery.Document) (Tenant, error) {
	for _, script := range doc.Find("script").Nodes {
		isBootstrap := false
		for _, a := range script.Attr {
			if a.Key == "id" && a.Val == "__NEXT_DATA__" {
				isBootstrap = true
				break
			}
		}
		if !isBootstrap {
			continue
		}

		var state bootstrapState
		err := json.Unmarshal([]byte(htmlutil.GetText(script)), &state)
		if err != nil {
			return Tenant{}, fmt.Errorf("unmarshal bootstrap state: %w", err)
		}
		tenant := state.Props.PageProps.Tenant
		if tenant.TenantName == "" {
			return Tenant{}, fmt.Errorf("bootstrap state has no tenant")
		}
		return Tenant{Name: tenant.TenantName, Uid: tenant.TenantUid}, nil
	}
	return Tenant{}, fmt.Errorf("could not find bootstrap state script")
}

// GetTenant fetches a club page and extracts its tenant metadata.
func (c *TenantClient) GetTenant(ctx context.Context, clubUrl string) (Tenant, error) {
	ctx, span := tracer.Start(ctx, "GetTenant")
	defer span.End()
	span.SetAttributes(attribute.String("url", clubUrl))

	res, err := c.http.R().SetContext(ctx).Get(clubUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch club page")
		return Tenant{}, err
	}
	if res.IsError() {
		err = fmt.Errorf("club page returned %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch club page")
		return Tenant{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse club page")
		return Tenant{}, err
	}

	tenant, err := tenantFromDocument(doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract tenant")
		return Tenant{}, err
	}

	span.SetAttributes(attribute.String("tenant", tenant.Name))
	return tenant, nil
}

// TenantUidFromUrl pulls the tenant uuid out of a club booking url,
// it is the last path segment (query string stripped).
func TenantUidFromUrl(clubUrl string) string {
	trimmed := strings.TrimRight(clubUrl, "/")
	uid := trimmed[strings.LastIndex(trimmed, "/")+1:]
	uid, _, _ = strings.Cut(uid, "?")
	return uid
}
