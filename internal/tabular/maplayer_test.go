package tabular

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
)

func TestBuildMapLayer_Points(t *testing.T) {
	in := coreCSV(
		"stan1293,Indo-European,English,water,water,51.5,-0.1,OED",
		"germ1287,Indo-European,German,water,Wasser,52.5,13.4,Duden",
	)
	fc, count, err := BuildMapLayer(in, MapLayerOptions{})
	if err != nil {
		t.Fatalf("BuildMapLayer: %v", err)
	}
	if count != 2 || len(fc.Features) != 2 {
		t.Fatalf("point count = %d, want 2", count)
	}

	pt := fc.Features[0].Geometry.(orb.Point)
	if diff := cmp.Diff(orb.Point{-0.1, 51.5}, pt); diff != "" {
		t.Errorf("geometry is (lon, lat) mismatch:\n%s", diff)
	}
	if got := fc.Features[0].Properties["Language Name"]; got != "English" {
		t.Errorf("property Language Name = %v", got)
	}
	if _, ok := fc.Features[0].Properties["Latitude"]; ok {
		t.Error("coordinate columns must not leak into properties")
	}
}

func TestBuildMapLayer_DropsRowsMissingCoordinates(t *testing.T) {
	in := coreCSV(
		"stan1293,Indo-European,English,water,water,51.5,-0.1,OED",
		"germ1287,Indo-European,German,water,Wasser,,13.4,Duden",
	)
	_, count, err := BuildMapLayer(in, MapLayerOptions{})
	if err != nil {
		t.Fatalf("BuildMapLayer: %v", err)
	}
	if count != 1 {
		t.Errorf("point count = %d, want 1", count)
	}
}

func TestBuildMapLayer_PropertyCoercion(t *testing.T) {
	in := "Name,Count,Score,Note,Latitude,Longitude\nAlpha,3,1.5,,10.0,20.0\n"
	fc, _, err := BuildMapLayer(in, MapLayerOptions{})
	if err != nil {
		t.Fatalf("BuildMapLayer: %v", err)
	}
	props := fc.Features[0].Properties
	if got, want := props["Count"], 3; got != want {
		t.Errorf("Count = %#v, want plain int %d", got, want)
	}
	if got, want := props["Score"], 1.5; got != want {
		t.Errorf("Score = %#v, want plain float %v", got, want)
	}
	if props["Note"] != nil {
		t.Errorf("blank cell should be explicit null, got %#v", props["Note"])
	}

	// The collection must encode as plain GeoJSON.
	data, err := json.Marshal(fc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"FeatureCollection"`) {
		t.Errorf("unexpected encoding: %s", data)
	}
}

func TestBuildMapLayer_CustomColumns(t *testing.T) {
	in := "Name,lat,lng\nAlpha,10.0,20.0\n"
	_, count, err := BuildMapLayer(in, MapLayerOptions{LatColumn: "lat", LonColumn: "lng"})
	if err != nil {
		t.Fatalf("BuildMapLayer: %v", err)
	}
	if count != 1 {
		t.Errorf("point count = %d", count)
	}
}

func TestBuildMapLayer_MissingCoordinateColumns(t *testing.T) {
	_, _, err := BuildMapLayer("Name,x,y\nAlpha,1,2\n", MapLayerOptions{})
	if err == nil || !strings.Contains(err.Error(), "Latitude") {
		t.Errorf("want missing-column error, got %v", err)
	}
}

func TestBuildMapLayer_StructuralGateHint(t *testing.T) {
	in := coreCSV("stan1293,Indo-European,English,water,water,51.0,0.0,Smith, 1999")
	_, _, err := BuildMapLayer(in, MapLayerOptions{})
	if !errors.Is(err, ErrNeedsNormalize) {
		t.Fatalf("want ErrNeedsNormalize, got %v", err)
	}
	if !strings.Contains(err.Error(), "unescaped commas") {
		t.Errorf("error lacks commas-in-Source hint: %v", err)
	}
}
