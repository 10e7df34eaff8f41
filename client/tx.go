package client

// chunks 按 size 切分 p，不拷贝
func chunks(p []byte, size int) [][]byte {
	if len(p) == 0 || size <= 0 {
		return nil
	}
	out := make([][]byte, 0, (len(p)+size-1)/size)
	for len(p) > size {
		out = append(out, p[:size])
		p = p[size:]
	}
	return append(out, p)
}
