// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// Certificate represents the console certificate embedded in console-signed
// packages: the signing console's identity and raw RSA public key material.
type Certificate struct {
	PublicKeyCertificateSize uint16           `json:"public_key_certificate_size"`
	OwnerConsoleID           []byte           `json:"owner_console_id"`
	OwnerConsolePartNumber   string           `json:"owner_console_part_number"`
	OwnerConsoleType         ConsoleType      `json:"owner_console_type"`
	ConsoleTypeFlags         ConsoleTypeFlags `json:"console_type_flags"`
	DateGeneration           string           `json:"date_generation"`
	PublicExponent           uint32           `json:"public_exponent"`
	PublicModulus            []byte           `json:"public_modulus"`
	CertificateSignature     []byte           `json:"certificate_signature"`
	Signature                []byte           `json:"signature"`
}

// parseCertificate reads the console certificate beginning at offset.
func (f *File) parseCertificate(offset int64) (*Certificate, error) {
	cert := Certificate{}

	var err error
	if cert.PublicKeyCertificateSize, err = f.ReadUint16(offset); err != nil {
		return nil, err
	}
	offset += 2

	if cert.OwnerConsoleID, err = f.ReadBytesAtOffset(offset, 5); err != nil {
		return nil, err
	}
	offset += 5

	if cert.OwnerConsolePartNumber, err = f.readASCIIStringAtOffset(
		offset, 0x11); err != nil {
		return nil, err
	}
	offset += 0x11

	consoleType, err := f.ReadUint32(offset)
	if err != nil {
		return nil, err
	}
	offset += 4

	cert.ConsoleTypeFlags = ConsoleTypeFlags(consoleType & 0xFFFFFFFC)
	cert.OwnerConsoleType = ConsoleType(consoleType & 0x3)
	if cert.OwnerConsoleType != ConsoleTypeDevKit &&
		cert.OwnerConsoleType != ConsoleTypeRetail {
		return nil, &InvalidEnumError{
			Field: "owner_console_type",
			Value: uint64(consoleType & 0x3),
		}
	}

	if cert.DateGeneration, err = f.readASCIIStringAtOffset(offset, 8); err != nil {
		return nil, err
	}
	offset += 8

	if cert.PublicExponent, err = f.ReadUint32(offset); err != nil {
		return nil, err
	}
	offset += 4

	if cert.PublicModulus, err = f.ReadBytesAtOffset(offset, 0x80); err != nil {
		return nil, err
	}
	offset += 0x80

	if cert.CertificateSignature, err = f.ReadBytesAtOffset(offset, 0x100); err != nil {
		return nil, err
	}
	offset += 0x100

	if cert.Signature, err = f.ReadBytesAtOffset(offset, 0x80); err != nil {
		return nil, err
	}

	return &cert, nil
}
