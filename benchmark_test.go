package pymarshal

import (
	"math/big"
	"testing"
)

func benchmarkValue() *Value {
	shared := Str(".zyx.41")
	return Dict(
		Entry(Str("astring"), Str("foo@bar.baz.spam")),
		Entry(Str("afloat"), Float(7283.43)),
		Entry(Str("anint"), Int(1<<20)),
		Entry(Str("along"), BigInt(new(big.Int).Lsh(big.NewInt(7), 100))),
		Entry(Str("alist"), List(shared)),
		Entry(Str("atuple"), Tuple(shared, shared, shared, shared, shared, shared, shared, shared, shared, shared)),
		Entry(Str("aboolean"), Bool(false)),
		Entry(Str("aunicode"), Str("Andrè Previn")),
	)
}

func BenchmarkMarshal(b *testing.B) {
	v := benchmarkValue()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(v, CurrentVersion); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	data, err := Marshal(benchmarkValue(), CurrentVersion)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Unmarshal(data, CurrentVersion); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshalCode(b *testing.B) {
	d := NewDecoder(CurrentVersion).WithPosOnlyArgCount(false)
	data := []byte(testExceptionsCode)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Unmarshal(data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRoundTrip(b *testing.B) {
	v := benchmarkValue()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data, err := Marshal(v, CurrentVersion)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := Unmarshal(data, CurrentVersion); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRepr(b *testing.B) {
	v := benchmarkValue()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Repr(v)
	}
}
