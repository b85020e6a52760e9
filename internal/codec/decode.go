package codec

import "spinpet-indexer/internal/domain"

func decodeTokenCreated(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(261); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	mint, _ := r.pubkey()
	curve, _ := r.pubkey()
	poolToken, _ := r.pubkey()
	poolSol, _ := r.pubkey()
	feeRecipient, _ := r.pubkey()
	baseFeeRecipient, _ := r.pubkey()
	paramsAccount, _ := r.pubkey()
	swapFee, _ := r.u16()
	borrowFee, _ := r.u16()
	discountFlag, _ := r.u8()
	name, err := r.borshString()
	if err != nil {
		return domain.Event{}, err
	}
	symbol, err := r.borshString()
	if err != nil {
		return domain.Event{}, err
	}
	uri, err := r.borshString()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventTokenCreated, Payer: payer, Mint: mint},
		TokenCreated: &domain.TokenCreatedPayload{
			CurveAccount:     curve,
			PoolTokenAccount: poolToken,
			PoolSolAccount:   poolSol,
			FeeRecipient:     feeRecipient,
			BaseFeeRecipient: baseFeeRecipient,
			ParamsAccount:    paramsAccount,
			Name:             name,
			Symbol:           symbol,
			URI:              uri,
			SwapFeeBps:       swapFee,
			BorrowFeeBps:     borrowFee,
			FeeDiscountFlag:  discountFlag,
		},
	}, nil
}

func decodeBuySell(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(97); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	mint, _ := r.pubkey()
	isBuy, _ := r.bool8()
	tokenAmount, _ := r.u64String()
	solAmount, _ := r.u64String()
	latestPrice, err := r.u128String()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventBuySell, Payer: payer, Mint: mint},
		BuySell: &domain.BuySellPayload{
			IsBuy:       isBuy,
			TokenAmount: tokenAmount,
			SolAmount:   solAmount,
			LatestPrice: latestPrice,
		},
	}, nil
}

func decodeLongShort(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(259); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	mint, _ := r.pubkey()
	orderPDA, _ := r.pubkey()
	latestPrice, _ := r.u128String()
	orderType, _ := r.u8()
	positionMint, _ := r.pubkey()
	user, _ := r.pubkey()
	lockStart, _ := r.u128String()
	lockEnd, _ := r.u128String()
	lockSol, _ := r.u64String()
	lockToken, _ := r.u64String()
	startTime, _ := r.u32()
	endTime, _ := r.u32()
	margin, _ := r.u64String()
	borrow, _ := r.u64String()
	positionAsset, _ := r.u64String()
	borrowFee, err := r.u16()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventLongShort, Payer: payer, Mint: mint},
		LongShort: &domain.LongShortPayload{
			OrderPDA:            orderPDA,
			LatestPrice:         latestPrice,
			OrderType:           orderType,
			Side:                domain.SideFromOrderType(orderType),
			PositionMint:        positionMint,
			User:                user,
			LockLPStartPrice:    lockStart,
			LockLPEndPrice:      lockEnd,
			LockLPSolAmount:     lockSol,
			LockLPTokenAmount:   lockToken,
			StartTime:           int64(startTime),
			EndTime:             int64(endTime),
			MarginSolAmount:     margin,
			BorrowAmount:        borrow,
			PositionAssetAmount: positionAsset,
			BorrowFeeBps:        borrowFee,
		},
	}, nil
}

func decodeForceLiquidate(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(96); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	mint, _ := r.pubkey()
	orderPDA, err := r.pubkey()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope:       domain.Envelope{Kind: domain.EventForceLiquidate, Payer: payer, Mint: mint},
		ForceLiquidate: &domain.ForceLiquidatePayload{OrderPDA: orderPDA},
	}, nil
}

func decodeFullClose(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(169); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	userSolAccount, _ := r.pubkey()
	mint, _ := r.pubkey()
	isCloseLong, _ := r.bool8()
	finalTokenAmount, _ := r.u64String()
	finalSolAmount, _ := r.u64String()
	userCloseProfit, _ := r.u64String()
	latestPrice, _ := r.u128String()
	orderPDA, err := r.pubkey()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventFullClose, Payer: payer, Mint: mint},
		FullClose: &domain.FullClosePayload{
			UserSolAccount:   userSolAccount,
			IsCloseLong:      isCloseLong,
			FinalTokenAmount: finalTokenAmount,
			FinalSolAmount:   finalSolAmount,
			UserCloseProfit:  userCloseProfit,
			LatestPrice:      latestPrice,
			OrderPDA:         orderPDA,
		},
	}, nil
}

func decodePartialClose(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(316); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	userSolAccount, _ := r.pubkey()
	mint, _ := r.pubkey()
	isCloseLong, _ := r.bool8()
	finalTokenAmount, _ := r.u64String()
	finalSolAmount, _ := r.u64String()
	userCloseProfit, _ := r.u64String()
	latestPrice, _ := r.u128String()
	orderPDA, _ := r.pubkey()
	orderType, _ := r.u8()
	positionMint, _ := r.pubkey()
	user, _ := r.pubkey()
	lockStart, _ := r.u128String()
	lockEnd, _ := r.u128String()
	lockSol, _ := r.u64String()
	lockToken, _ := r.u64String()
	startTime, _ := r.u32()
	endTime, _ := r.u32()
	margin, _ := r.u64String()
	borrow, _ := r.u64String()
	positionAsset, _ := r.u64String()
	borrowFee, err := r.u16()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventPartialClose, Payer: payer, Mint: mint},
		PartialClose: &domain.PartialClosePayload{
			UserSolAccount:      userSolAccount,
			IsCloseLong:         isCloseLong,
			FinalTokenAmount:    finalTokenAmount,
			FinalSolAmount:      finalSolAmount,
			UserCloseProfit:     userCloseProfit,
			LatestPrice:         latestPrice,
			OrderPDA:            orderPDA,
			OrderType:           orderType,
			Side:                domain.SideFromOrderType(orderType),
			PositionMint:        positionMint,
			User:                user,
			LockLPStartPrice:    lockStart,
			LockLPEndPrice:      lockEnd,
			LockLPSolAmount:     lockSol,
			LockLPTokenAmount:   lockToken,
			StartTime:           int64(startTime),
			EndTime:             int64(endTime),
			MarginSolAmount:     margin,
			BorrowAmount:        borrow,
			PositionAssetAmount: positionAsset,
			BorrowFeeBps:        borrowFee,
		},
	}, nil
}

// decodeMilestoneDiscount reads 101 bytes, not the 99 the original source
// guards for while still reading a byte at offset 100 — corrected here.
func decodeMilestoneDiscount(data []byte) (domain.Event, error) {
	r := newByteReader(data)
	if err := r.need(101); err != nil {
		return domain.Event{}, err
	}
	payer, _ := r.pubkey()
	mint, _ := r.pubkey()
	curve, _ := r.pubkey()
	swapFee, _ := r.u16()
	borrowFee, _ := r.u16()
	discountFlag, err := r.u8()
	if err != nil {
		return domain.Event{}, err
	}

	return domain.Event{
		Envelope: domain.Envelope{Kind: domain.EventMilestoneDiscount, Payer: payer, Mint: mint},
		MilestoneDiscount: &domain.MilestoneDiscountPayload{
			CurveAccount:    curve,
			SwapFeeBps:      swapFee,
			BorrowFeeBps:    borrowFee,
			FeeDiscountFlag: discountFlag,
		},
	}, nil
}
