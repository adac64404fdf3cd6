package feeds

import (
	"encoding/json"
	"testing"
)

func TestParseBiography(t *testing.T) {
	bio := ParseBiography("# Ada Lovelace\n## Mathematician and writer\n\nBorn in London.")
	if bio.Title != "Ada Lovelace" {
		t.Errorf("Unexpected title: %q", bio.Title)
	}
	if bio.Description != "Mathematician and writer" {
		t.Errorf("Unexpected description: %q", bio.Description)
	}
	if bio.Markdown == "" {
		t.Error("Expected full markdown kept")
	}
}

func TestParseBiography_BareTitleLine(t *testing.T) {
	bio := ParseBiography("Ada Lovelace\n## Mathematician\n\nBorn in London.")
	if bio.Title != "Ada Lovelace" {
		t.Errorf("Expected first line as title without a heading prefix, got %q", bio.Title)
	}
	if bio.Description != "Mathematician" {
		t.Errorf("Unexpected description: %q", bio.Description)
	}
}

func TestParseBiography_NoDescriptionHeading(t *testing.T) {
	bio := ParseBiography("Just some text.\nMore text.")
	if bio.Title != "Just some text." {
		t.Errorf("Unexpected title: %q", bio.Title)
	}
	if bio.Description != "" {
		t.Errorf("Expected no description override, got %q", bio.Description)
	}
}

func TestParsePublications(t *testing.T) {
	text := "On Things\t1950\thttps://doi.example/1\tNature\tauthor\tA. Author\n" +
		"\n" +
		"Short Row\t1960\n"
	pubs := ParsePublications(text)
	if len(pubs) != 2 {
		t.Fatalf("Expected 2 publications, got %d", len(pubs))
	}
	if pubs[0].Title != "On Things" || pubs[0].Journal != "Nature" || pubs[0].Authors != "A. Author" {
		t.Errorf("Unexpected first row: %+v", pubs[0])
	}
	if pubs[1].Title != "Short Row" || pubs[1].Date != "1960" || pubs[1].Link != "" {
		t.Errorf("Expected missing columns to stay empty: %+v", pubs[1])
	}
}

func TestParseIDList(t *testing.T) {
	ids, labels := ParseIDList("Q42 Douglas Adams\nQ7\n# comment\n\nnot-an-id\n")
	if len(ids) != 2 || ids[0] != "Q42" || ids[1] != "Q7" {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if labels["Q42"] != "Douglas Adams" {
		t.Errorf("Unexpected label: %q", labels["Q42"])
	}
	if _, ok := labels["Q7"]; ok {
		t.Error("Expected no label for bare id")
	}
}

func TestParseIDList_TabSeparated(t *testing.T) {
	ids, labels := ParseIDList("Q42\tDouglas Adams\n")
	if len(ids) != 1 || ids[0] != "Q42" {
		t.Errorf("Unexpected ids: %v", ids)
	}
	if labels["Q42"] != "Douglas Adams" {
		t.Errorf("Expected label from tab-separated row, got %q", labels["Q42"])
	}
}

func TestParsePropertyList(t *testing.T) {
	keys, labels := ParsePropertyList("P569 date of birth\nP19\tplace of birth\nP18\nQ42 not a property\n")
	if len(keys) != 3 || keys[0] != "P569" || keys[1] != "P19" || keys[2] != "P18" {
		t.Errorf("Unexpected keys: %v", keys)
	}
	if labels["P569"] != "date of birth" {
		t.Errorf("Unexpected label: %q", labels["P569"])
	}
	if labels["P19"] != "place of birth" {
		t.Errorf("Expected label from tab-separated row, got %q", labels["P19"])
	}
}

func TestParseImageList(t *testing.T) {
	text := "Q42\tDouglas Adams\tPortrait.jpg\n" +
		"Q42\tDouglas Adams\tSecond.jpg\n" +
		"Q7\ttoo short\n"
	images := ParseImageList(text)
	if len(images["Q42"]) != 2 {
		t.Errorf("Expected 2 images for Q42, got %v", images["Q42"])
	}
	if _, ok := images["Q7"]; ok {
		t.Error("Expected short rows to be skipped")
	}
}

func TestSiteConfig_IDListForms(t *testing.T) {
	var feed SiteConfig
	if err := json.Unmarshal([]byte(`{"idList":"https://feeds.example/ids.txt"}`), &feed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if url, ids := feed.IDListSource(); url != "https://feeds.example/ids.txt" || ids != nil {
		t.Errorf("Expected a feed URL, got %q / %v", url, ids)
	}

	var literal SiteConfig
	if err := json.Unmarshal([]byte(`{"idList":["Q1","Q2"]}`), &literal); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if url, ids := literal.IDListSource(); url != "" || len(ids) != 2 || ids[0] != "Q1" {
		t.Errorf("Expected literal ids, got %q / %v", url, ids)
	}

	var absent SiteConfig
	if url, ids := absent.IDListSource(); url != "" || ids != nil {
		t.Errorf("Expected empty source for absent idList, got %q / %v", url, ids)
	}
}
