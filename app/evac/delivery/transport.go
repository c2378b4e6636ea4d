package delivery

// jobTypeBytes returns rpc type bytes which is used to multiplexing.
func jobTypeBytes() []byte {
	return []byte{
		0x02, // rpcEvac
	}
}

// reportTypeBytes returns rpc type bytes which is used to multiplexing.
func reportTypeBytes() []byte {
	return []byte{
		0x03, // rpcReport
	}
}
