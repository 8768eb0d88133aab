// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fat32

// ReadFile translates a (starting cluster, byte offset, length) request into
// a sequence of per-cluster sector reads, honoring the file size as a hard
// clamp (spec.md §4.5). It never reads a byte at file-relative position >= size.
func ReadFile(br BlockReader, bpb *BPB, startCluster uint32, size uint64, offset uint64, buf []byte) (int, error) {
	if offset >= size {
		return 0, nil
	}

	want := uint64(len(buf))
	if remaining := size - offset; want > remaining {
		want = remaining
	}

	clusterSize := uint64(bpb.BytesPerCluster())
	skip := offset / clusterSize
	within := offset % clusterSize

	cluster := startCluster
	for i := uint64(0); i < skip; i++ {
		next, ok, err := NextCluster(br, bpb, cluster)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errFileCorrupt()
		}
		cluster = next
	}

	var written uint64
	for written < want {
		chunk := clusterSize - within
		if remain := want - written; chunk > remain {
			chunk = remain
		}

		clusterByteOff := uint64(bpb.ClusterStartSector(cluster)) * uint64(bpb.BytesPerSector())
		if err := readExact(br, buf[written:written+chunk], int64(clusterByteOff+within)); err != nil {
			return 0, err
		}
		written += chunk
		within = 0

		if written == want {
			break
		}

		next, ok, err := NextCluster(br, bpb, cluster)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errFileCorrupt()
		}
		cluster = next
	}

	return int(written), nil
}
