package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mappingFor(t *testing.T, p Provider) Mapping {
	t.Helper()
	m, err := DefaultMappings().For(p)
	require.NoError(t, err)
	return m
}

func TestParse_LomadeeJSON(t *testing.T) {
	payload := `{
		"products": [
			{"id": 1001, "name": "Smartphone Galaxy S24", "price": 3999.9, "oldPrice": "4599.00",
			 "link": "https://shop.example/s24", "thumbnail": "https://img.example/s24.jpg",
			 "category": {"name": "Celulares"}, "brand": "Samsung", "ean": "7891234567890"},
			{"sku": "NB-15", "productName": "Notebook 15", "salePrice": "2.499,90", "url": "https://shop.example/nb15"},
			{"id": 1003, "name": "No link", "price": 10},
			{"id": 1004, "name": "Bad price", "price": "abc", "link": "https://shop.example/bad"},
			{"id": 1005, "name": "Free", "price": 0, "link": "https://shop.example/free"},
			"not an object"
		]
	}`

	batch, err := Parse(FormatJSON, []byte(payload), mappingFor(t, ProviderLomadee))
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Skipped, 4)
	assert.Equal(t, 6, batch.Total())

	first := batch.Records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "1001", first.ExternalID)
	assert.Equal(t, "Smartphone Galaxy S24", first.Name)
	assert.Equal(t, 3999.9, first.Price)
	require.NotNil(t, first.OriginalPrice)
	assert.Equal(t, 4599.0, *first.OriginalPrice)
	assert.Equal(t, "https://img.example/s24.jpg", first.Image)
	assert.Equal(t, "Celulares", first.Category)
	assert.Equal(t, "Samsung", first.Brand)
	assert.Equal(t, "7891234567890", first.Barcode)

	second := batch.Records[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "NB-15", second.ExternalID)
	assert.Equal(t, "Notebook 15", second.Name)
	assert.Equal(t, 2499.9, second.Price)
	assert.Nil(t, second.OriginalPrice)

	indices := make([]int, len(batch.Skipped))
	for i, s := range batch.Skipped {
		indices[i] = s.Index
	}
	assert.Equal(t, []int{2, 3, 4, 5}, indices)
	assert.Contains(t, batch.Skipped[0].Reason, "missing url")
	assert.Contains(t, batch.Skipped[1].Reason, "invalid price")
	assert.Contains(t, batch.Skipped[2].Reason, "non-positive price")
}

func TestParse_JSONShapes(t *testing.T) {
	m := mappingFor(t, ProviderLomadee)

	t.Run("offers_key", func(t *testing.T) {
		batch, err := Parse(FormatJSON, []byte(`{"offers":[{"id":"a","name":"A","price":"1","link":"https://x/a"}]}`), m)
		require.NoError(t, err)
		assert.Len(t, batch.Records, 1)
	})

	t.Run("top_level_array", func(t *testing.T) {
		batch, err := Parse(FormatJSON, []byte(`[{"id":"a","name":"A","price":"1","link":"https://x/a"}]`), m)
		require.NoError(t, err)
		assert.Len(t, batch.Records, 1)
	})

	t.Run("no_offer_list", func(t *testing.T) {
		_, err := Parse(FormatJSON, []byte(`{"status":"ok"}`), m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no offer list")
	})

	t.Run("empty_offer_list", func(t *testing.T) {
		batch, err := Parse(FormatJSON, []byte(`{"offers":[]}`), m)
		require.NoError(t, err)
		assert.Zero(t, batch.Total())
	})

	t.Run("invalid_json", func(t *testing.T) {
		_, err := Parse(FormatJSON, []byte(`{"products": [`), m)
		assert.Error(t, err)
	})

	t.Run("scalar_document", func(t *testing.T) {
		_, err := Parse(FormatJSON, []byte(`42`), m)
		assert.Error(t, err)
	})
}

func TestParse_AwinXML(t *testing.T) {
	payload := `<?xml version="1.0" encoding="UTF-8"?>
<merchandiser>
  <product>
    <aw_product_id>AW-1</aw_product_id>
    <product_name><![CDATA[Fone Bluetooth & Case]]></product_name>
    <search_price>199.90</search_price>
    <rrp_price>299.90</rrp_price>
    <aw_deep_link><![CDATA[https://www.awin1.com/pclick.php?p=1&a=2]]></aw_deep_link>
    <merchant_image_url>https://img.example/fone.jpg</merchant_image_url>
    <merchant_category>Audio</merchant_category>
    <brand_name>JBL</brand_name>
    <ean>0001112223334</ean>
    <merchant_product_id>JBL-T500</merchant_product_id>
  </product>
  <product>
    <merchant_product_id>ONLY-ID</merchant_product_id>
    <product_name>Missing price</product_name>
    <merchant_deep_link>https://shop.example/p</merchant_deep_link>
  </product>
</merchandiser>`

	batch, err := Parse(FormatXML, []byte(payload), mappingFor(t, ProviderAwin))
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	require.Len(t, batch.Skipped, 1)

	rec := batch.Records[0]
	assert.Equal(t, "AW-1", rec.ExternalID)
	assert.Equal(t, "Fone Bluetooth & Case", rec.Name)
	assert.Equal(t, 199.9, rec.Price)
	require.NotNil(t, rec.OriginalPrice)
	assert.Equal(t, 299.9, *rec.OriginalPrice)
	assert.Equal(t, "https://www.awin1.com/pclick.php?p=1&a=2", rec.URL)
	assert.Equal(t, "https://img.example/fone.jpg", rec.Image)
	assert.Equal(t, "Audio", rec.Category)
	assert.Equal(t, "JBL", rec.Brand)
	assert.Equal(t, "0001112223334", rec.Barcode)
	assert.Equal(t, "JBL-T500", rec.SKU)

	assert.Equal(t, 1, batch.Skipped[0].Index)
	assert.Contains(t, batch.Skipped[0].Reason, "missing price")
}

func TestParse_CSV(t *testing.T) {
	payload := "\ufeffid,name,price,original_price,url,ean\n" +
		"1,\"Cafeteira, Expresso\",\"1.299,90\",1499.90,https://shop.example/1,789\n" +
		"\n" +
		"2,Liquidificador,89.90\n" +
		"3,Batedeira,-5,,https://shop.example/3,\n" +
		"4,Torradeira,59.9,not-a-price,https://shop.example/4,\n"

	batch, err := Parse(FormatCSV, []byte(payload), mappingFor(t, ProviderCSV))
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Skipped, 2)

	first := batch.Records[0]
	assert.Equal(t, "1", first.ExternalID)
	assert.Equal(t, "Cafeteira, Expresso", first.Name)
	assert.Equal(t, 1299.9, first.Price)
	require.NotNil(t, first.OriginalPrice)
	assert.Equal(t, 1499.9, *first.OriginalPrice)
	assert.Equal(t, "789", first.Barcode)

	last := batch.Records[1]
	assert.Equal(t, "4", last.ExternalID)
	assert.Nil(t, last.OriginalPrice, "unparsable original price is dropped, not fatal")

	assert.Contains(t, batch.Skipped[0].Reason, "missing url")
	assert.Contains(t, batch.Skipped[1].Reason, "non-positive")
}

func TestParse_CSVWithOverrides(t *testing.T) {
	m, err := mappingFor(t, ProviderCSV).WithOverrides(map[string]string{
		"name":  "titulo",
		"price": "preco",
		"url":   "link",
	})
	require.NoError(t, err)

	batch, err := Parse(FormatCSV, []byte("codigo,titulo,preco,link\nX1,Panela,120,https://shop.example/x1\n"), m)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "Panela", batch.Records[0].Name)
	assert.Equal(t, 120.0, batch.Records[0].Price)
	assert.Empty(t, batch.Records[0].ExternalID)
}

func TestParse_EmptyCSV(t *testing.T) {
	_, err := Parse(FormatCSV, nil, mappingFor(t, ProviderCSV))
	assert.Error(t, err)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse(Format("yaml"), []byte("a: b"), Mapping{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "1299.90", want: 1299.9},
		{raw: "1.299,90", want: 1299.9},
		{raw: "1,299.90", want: 1299.9},
		{raw: "R$ 49,90", want: 49.9},
		{raw: "$10", want: 10},
		{raw: "19.999", want: 20},
		{raw: "0", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "0.001", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapping(t *testing.T) {
	t.Run("overrides_take_precedence", func(t *testing.T) {
		base := mappingFor(t, ProviderLomadee)
		m, err := base.WithOverrides(map[string]string{"price": "precoPor"})
		require.NoError(t, err)
		assert.Equal(t, []string{"precoPor", "price", "salePrice"}, m.Keys(FieldPrice))
		assert.Equal(t, []string{"price", "salePrice"}, base.Keys(FieldPrice), "base mapping must not change")
	})

	t.Run("unknown_override_field", func(t *testing.T) {
		_, err := mappingFor(t, ProviderCSV).WithOverrides(map[string]string{"colour": "cor"})
		assert.Error(t, err)
	})

	t.Run("load_from_yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mappings.yaml")
		content := "lomadee:\n  items: [items]\n  fields:\n    price: [preco]\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		set, err := LoadMappings(path)
		require.NoError(t, err)
		m, err := set.For(ProviderLomadee)
		require.NoError(t, err)
		assert.Equal(t, []string{"items"}, m.Items)
		assert.Equal(t, []string{"preco"}, m.Keys(FieldPrice))
		assert.Equal(t, []string{"name", "productName"}, m.Keys(FieldName))
	})

	t.Run("load_rejects_unknown_provider", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mappings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("shopify:\n  fields:\n    price: [p]\n"), 0o600))
		_, err := LoadMappings(path)
		assert.Error(t, err)
	})

	t.Run("empty_path_is_defaults", func(t *testing.T) {
		set, err := LoadMappings("")
		require.NoError(t, err)
		assert.Len(t, set, 3)
	})
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf(ProviderAwin)
	require.NoError(t, err)
	assert.Equal(t, FormatXML, f)

	_, err = FormatOf("shopify")
	assert.Error(t, err)
}

func TestFetcher(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "src-1", r.URL.Query().Get("sourceId"))
			_, _ = w.Write([]byte(`{"products":[]}`))
		}))
		defer server.Close()

		u, err := SourceURL(ProviderLomadee, server.URL+"/feed?format=json", "src-1")
		require.NoError(t, err)

		body, err := NewFetcher(server.Client(), 0, 0).Fetch(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, `{"products":[]}`, string(body))
	})

	t.Run("unexpected_status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewFetcher(server.Client(), 0, 0).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	})

	t.Run("payload_too_large", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		}))
		defer server.Close()

		_, err := NewFetcher(server.Client(), 0, 32).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds 32 bytes")
	})

	t.Run("context_cancelled", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := NewFetcher(server.Client(), 0, 0).Fetch(ctx, server.URL)
		assert.Error(t, err)
	})
}

func TestSourceURL(t *testing.T) {
	u, err := SourceURL(ProviderAwin, "https://feeds.example/awin.xml", "aff")
	require.NoError(t, err)
	assert.Equal(t, "https://feeds.example/awin.xml", u)

	_, err = SourceURL(ProviderCSV, "not a url", "")
	assert.Error(t, err)
}
