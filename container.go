package subword

import (
	"math"

	"github.com/example/subword/model"
	"github.com/example/subword/normalizer"
	"github.com/example/subword/status"
	"github.com/example/subword/train"
	"google.golang.org/protobuf/encoding/protowire"
)

// ModelContainer is the persisted, opaque typed record of §6: pieces, the
// trainer spec that produced them, and the normalizer configuration.
//
// Serialization is hand-rolled protobuf wire format via
// google.golang.org/protobuf/encoding/protowire rather than generated
// proto.Message code: the pack's own SentencePiece-model reader
// (ollama-ollama's convert/tokenizer_spm.go, wired against
// convert/sentencepiece's generated ModelProto) establishes that this
// project's own model.Piece/Spec shape is exactly a trainer_spec + piece
// list, i.e. a proto message with no .proto source available to run
// through protoc in this workspace. protowire is the same module's
// public low-level encoder/decoder, so field tags below are assigned by
// hand the way a .proto file would, and decoded with the same
// unknown-field-skipping discipline generated code uses.
type ModelContainer struct {
	Pieces         []model.Piece
	Spec           train.Spec
	NormalizerBlob []byte
	NormalizerOpts normalizer.Options
}

const (
	fieldContainerPieces         protowire.Number = 1
	fieldContainerSpec           protowire.Number = 2
	fieldContainerNormalizerBlob protowire.Number = 3
	fieldContainerNormalizerOpts protowire.Number = 4
)

const (
	fieldPieceBytes protowire.Number = 1
	fieldPieceScore protowire.Number = 2
	fieldPieceType  protowire.Number = 3
)

const (
	fieldSpecAlgorithm               protowire.Number = 1
	fieldSpecVocabSize               protowire.Number = 2
	fieldSpecMaxPieceLength          protowire.Number = 3
	fieldSpecSplitByWhitespace       protowire.Number = 4
	fieldSpecSplitByUnicodeScript    protowire.Number = 5
	fieldSpecSplitByNumber           protowire.Number = 6
	fieldSpecCharacterCoverage       protowire.Number = 7
	fieldSpecNumSubIterations        protowire.Number = 8
	fieldSpecShrinkingFactor         protowire.Number = 9
	fieldSpecSeedPieceSize           protowire.Number = 10
	fieldSpecNumThreads              protowire.Number = 11
	fieldSpecTreatWhitespaceAsSuffix protowire.Number = 12
	fieldSpecUnkPiece                protowire.Number = 13
	fieldSpecBOSPiece                protowire.Number = 14
	fieldSpecEOSPiece                protowire.Number = 15
	fieldSpecPadPiece                protowire.Number = 16
	fieldSpecUnkSurface              protowire.Number = 17
	fieldSpecSeed                    protowire.Number = 18
	fieldSpecSelfTest                protowire.Number = 19
)

const (
	fieldSelfTestInput    protowire.Number = 1
	fieldSelfTestExpected protowire.Number = 2
)

const (
	fieldOptsEscapeWhitespaces      protowire.Number = 1
	fieldOptsAddDummyPrefix         protowire.Number = 2
	fieldOptsRemoveExtraWhitespaces protowire.Number = 3
	fieldOptsTreatWhitespaceSuffix  protowire.Number = 4
)

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, 1)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func marshalPiece(p model.Piece) []byte {
	var b []byte
	if len(p.Bytes) > 0 {
		b = protowire.AppendTag(b, fieldPieceBytes, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Bytes)
	}
	if p.Score != 0 {
		b = protowire.AppendTag(b, fieldPieceScore, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(p.Score))
	}
	b = appendVarint(b, fieldPieceType, uint64(p.Type))
	return b
}

func unmarshalPiece(data []byte) (model.Piece, error) {
	var p model.Piece
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return p, status.New(status.DataLoss, "malformed piece tag")
		}
		data = data[n:]
		switch num {
		case fieldPieceBytes:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return p, status.New(status.DataLoss, "malformed piece bytes field")
			}
			p.Bytes = append([]byte(nil), v...)
			data = data[n:]
		case fieldPieceScore:
			v, n := protowire.ConsumeFixed32(data)
			if n < 0 {
				return p, status.New(status.DataLoss, "malformed piece score field")
			}
			p.Score = math.Float32frombits(v)
			data = data[n:]
		case fieldPieceType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return p, status.New(status.DataLoss, "malformed piece type field")
			}
			p.Type = model.PieceType(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return p, status.New(status.DataLoss, "malformed piece unknown field")
			}
			data = data[n:]
		}
	}
	return p, nil
}

func marshalSelfTest(c train.SelfTestCase) []byte {
	var b []byte
	b = appendString(b, fieldSelfTestInput, c.Input)
	b = appendString(b, fieldSelfTestExpected, c.Expected)
	return b
}

func unmarshalSelfTest(data []byte) (train.SelfTestCase, error) {
	var c train.SelfTestCase
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return c, status.New(status.DataLoss, "malformed self-test tag")
		}
		data = data[n:]
		switch num {
		case fieldSelfTestInput:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return c, status.New(status.DataLoss, "malformed self-test input field")
			}
			c.Input = v
			data = data[n:]
		case fieldSelfTestExpected:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return c, status.New(status.DataLoss, "malformed self-test expected field")
			}
			c.Expected = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return c, status.New(status.DataLoss, "malformed self-test unknown field")
			}
			data = data[n:]
		}
	}
	return c, nil
}

func marshalSpec(s train.Spec) []byte {
	var b []byte
	b = appendVarint(b, fieldSpecAlgorithm, uint64(s.Algorithm))
	b = appendVarint(b, fieldSpecVocabSize, uint64(s.VocabSize))
	b = appendVarint(b, fieldSpecMaxPieceLength, uint64(s.MaxPieceLength))
	b = appendBool(b, fieldSpecSplitByWhitespace, s.SplitByWhitespace)
	b = appendBool(b, fieldSpecSplitByUnicodeScript, s.SplitByUnicodeScript)
	b = appendBool(b, fieldSpecSplitByNumber, s.SplitByNumber)
	b = appendDouble(b, fieldSpecCharacterCoverage, s.CharacterCoverage)
	b = appendVarint(b, fieldSpecNumSubIterations, uint64(s.NumSubIterations))
	b = appendDouble(b, fieldSpecShrinkingFactor, s.ShrinkingFactor)
	b = appendVarint(b, fieldSpecSeedPieceSize, uint64(s.SeedPieceSize))
	b = appendVarint(b, fieldSpecNumThreads, uint64(s.NumThreads))
	b = appendBool(b, fieldSpecTreatWhitespaceAsSuffix, s.TreatWhitespaceAsSuffix)
	b = appendString(b, fieldSpecUnkPiece, s.UnkPiece)
	b = appendString(b, fieldSpecBOSPiece, s.BOSPiece)
	b = appendString(b, fieldSpecEOSPiece, s.EOSPiece)
	b = appendString(b, fieldSpecPadPiece, s.PadPiece)
	b = appendString(b, fieldSpecUnkSurface, s.UnkSurface)
	b = appendVarint(b, fieldSpecSeed, s.Seed)
	for _, c := range s.SelfTest {
		b = appendMessage(b, fieldSpecSelfTest, marshalSelfTest(c))
	}
	return b
}

func unmarshalSpec(data []byte) (train.Spec, error) {
	var s train.Spec
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return s, status.New(status.DataLoss, "malformed spec tag")
		}
		data = data[n:]
		switch num {
		case fieldSpecAlgorithm:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec algorithm field")
			}
			s.Algorithm = train.Algorithm(v)
			data = data[n:]
		case fieldSpecVocabSize:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec vocab_size field")
			}
			s.VocabSize = int(v)
			data = data[n:]
		case fieldSpecMaxPieceLength:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec max_piece_length field")
			}
			s.MaxPieceLength = int(v)
			data = data[n:]
		case fieldSpecSplitByWhitespace:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec split_by_whitespace field")
			}
			s.SplitByWhitespace = v != 0
			data = data[n:]
		case fieldSpecSplitByUnicodeScript:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec split_by_unicode_script field")
			}
			s.SplitByUnicodeScript = v != 0
			data = data[n:]
		case fieldSpecSplitByNumber:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec split_by_number field")
			}
			s.SplitByNumber = v != 0
			data = data[n:]
		case fieldSpecCharacterCoverage:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec character_coverage field")
			}
			s.CharacterCoverage = math.Float64frombits(v)
			data = data[n:]
		case fieldSpecNumSubIterations:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec num_sub_iterations field")
			}
			s.NumSubIterations = int(v)
			data = data[n:]
		case fieldSpecShrinkingFactor:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec shrinking_factor field")
			}
			s.ShrinkingFactor = math.Float64frombits(v)
			data = data[n:]
		case fieldSpecSeedPieceSize:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec seed_piece_size field")
			}
			s.SeedPieceSize = int(v)
			data = data[n:]
		case fieldSpecNumThreads:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec num_threads field")
			}
			s.NumThreads = int(v)
			data = data[n:]
		case fieldSpecTreatWhitespaceAsSuffix:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec treat_whitespace_as_suffix field")
			}
			s.TreatWhitespaceAsSuffix = v != 0
			data = data[n:]
		case fieldSpecUnkPiece:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec unk_piece field")
			}
			s.UnkPiece = v
			data = data[n:]
		case fieldSpecBOSPiece:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec bos_piece field")
			}
			s.BOSPiece = v
			data = data[n:]
		case fieldSpecEOSPiece:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec eos_piece field")
			}
			s.EOSPiece = v
			data = data[n:]
		case fieldSpecPadPiece:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec pad_piece field")
			}
			s.PadPiece = v
			data = data[n:]
		case fieldSpecUnkSurface:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec unk_surface field")
			}
			s.UnkSurface = v
			data = data[n:]
		case fieldSpecSeed:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec seed field")
			}
			s.Seed = v
			data = data[n:]
		case fieldSpecSelfTest:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec self_test field")
			}
			c, err := unmarshalSelfTest(v)
			if err != nil {
				return s, err
			}
			s.SelfTest = append(s.SelfTest, c)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return s, status.New(status.DataLoss, "malformed spec unknown field")
			}
			data = data[n:]
		}
	}
	return s, nil
}

func marshalOptions(o normalizer.Options) []byte {
	var b []byte
	b = appendBool(b, fieldOptsEscapeWhitespaces, o.EscapeWhitespaces)
	b = appendBool(b, fieldOptsAddDummyPrefix, o.AddDummyPrefix)
	b = appendBool(b, fieldOptsRemoveExtraWhitespaces, o.RemoveExtraWhitespaces)
	b = appendBool(b, fieldOptsTreatWhitespaceSuffix, o.TreatWhitespaceAsSuffix)
	return b
}

func unmarshalOptions(data []byte) (normalizer.Options, error) {
	var o normalizer.Options
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return o, status.New(status.DataLoss, "malformed normalizer options tag")
		}
		data = data[n:]
		switch num {
		case fieldOptsEscapeWhitespaces:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return o, status.New(status.DataLoss, "malformed options escape_whitespaces field")
			}
			o.EscapeWhitespaces = v != 0
			data = data[n:]
		case fieldOptsAddDummyPrefix:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return o, status.New(status.DataLoss, "malformed options add_dummy_prefix field")
			}
			o.AddDummyPrefix = v != 0
			data = data[n:]
		case fieldOptsRemoveExtraWhitespaces:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return o, status.New(status.DataLoss, "malformed options remove_extra_whitespaces field")
			}
			o.RemoveExtraWhitespaces = v != 0
			data = data[n:]
		case fieldOptsTreatWhitespaceSuffix:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return o, status.New(status.DataLoss, "malformed options treat_whitespace_as_suffix field")
			}
			o.TreatWhitespaceAsSuffix = v != 0
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return o, status.New(status.DataLoss, "malformed options unknown field")
			}
			data = data[n:]
		}
	}
	return o, nil
}

// EncodeContainer serializes a container to protobuf wire bytes.
func EncodeContainer(c *ModelContainer) ([]byte, error) {
	var b []byte
	for _, p := range c.Pieces {
		b = appendMessage(b, fieldContainerPieces, marshalPiece(p))
	}
	b = appendMessage(b, fieldContainerSpec, marshalSpec(c.Spec))
	if len(c.NormalizerBlob) > 0 {
		b = protowire.AppendTag(b, fieldContainerNormalizerBlob, protowire.BytesType)
		b = protowire.AppendBytes(b, c.NormalizerBlob)
	}
	b = appendMessage(b, fieldContainerNormalizerOpts, marshalOptions(c.NormalizerOpts))
	return b, nil
}

func decodeContainer(data []byte) (*ModelContainer, error) {
	var c ModelContainer
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, status.New(status.DataLoss, "malformed container tag")
		}
		data = data[n:]
		switch num {
		case fieldContainerPieces:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, status.New(status.DataLoss, "malformed container pieces field")
			}
			p, err := unmarshalPiece(v)
			if err != nil {
				return nil, err
			}
			c.Pieces = append(c.Pieces, p)
			data = data[n:]
		case fieldContainerSpec:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, status.New(status.DataLoss, "malformed container spec field")
			}
			s, err := unmarshalSpec(v)
			if err != nil {
				return nil, err
			}
			c.Spec = s
			data = data[n:]
		case fieldContainerNormalizerBlob:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, status.New(status.DataLoss, "malformed container normalizer_blob field")
			}
			c.NormalizerBlob = append([]byte(nil), v...)
			data = data[n:]
		case fieldContainerNormalizerOpts:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, status.New(status.DataLoss, "malformed container normalizer_opts field")
			}
			o, err := unmarshalOptions(v)
			if err != nil {
				return nil, err
			}
			c.NormalizerOpts = o
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, status.New(status.DataLoss, "malformed container unknown field")
			}
			data = data[n:]
		}
	}
	return &c, nil
}
