package wire

import "testing"

// invariant 3: row -> columnar -> row round trip for uniform column types.
func TestColumnarRoundTrip(t *testing.T) {
	rb := buildSampleBuffer(50)
	cb, err := RowsToColumnar(rb, false)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ColumnarToRows(cb)
	if err != nil {
		t.Fatal(err)
	}
	assertBuffersEqual(t, rb, back)
}

func TestColumnarEncodeDecodeRoundTrip(t *testing.T) {
	rb := buildSampleBuffer(75)
	cb, err := RowsToColumnar(rb, false)
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeColumnar(cb)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeColumnar(data)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ColumnarToRows(got)
	if err != nil {
		t.Fatal(err)
	}
	assertBuffersEqual(t, rb, back)
}

func TestColumnarCompressionBaseline(t *testing.T) {
	rb := buildSampleBuffer(10)
	cb, err := RowsToColumnar(rb, false)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range cb.Columns {
		switch c.Kind {
		case KindText, KindBinary:
			if !c.Compressed {
				t.Fatalf("column %s should compress by default", c.Name)
			}
		case KindInt32, KindInt64:
			if c.Compressed {
				t.Fatalf("fixed-width column %s should not compress by default", c.Name)
			}
		}
	}
}

func TestColumnarDecodeRejectsNonColumnarFrame(t *testing.T) {
	rb := buildSampleBuffer(1)
	data, err := Encode(rb)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeColumnar(data); err == nil {
		t.Fatalf("expected error decoding row-major frame as columnar")
	}
}
